package reviews

import (
	cryptoutil "kpiboard/internal/platform/crypto"
	"kpiboard/internal/platform/querier"
)

type Store struct {
	DB     querier.TxBeginner
	Crypto *cryptoutil.Service
}

func NewStore(db querier.TxBeginner, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}
