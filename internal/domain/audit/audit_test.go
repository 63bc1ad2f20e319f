package audit

import (
	"reflect"
	"testing"
)

func TestBuildBaseQuery(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{})
	if query != "SELECT COUNT(1) FROM audit_events WHERE 1=1" || len(args) != 0 {
		t.Fatalf("unexpected unfiltered query %q %v", query, args)
	}

	query, args = buildBaseQuery("SELECT id", Filter{Action: ActionReview, EntityType: EntityReview, ActorID: "u1"})
	want := "SELECT id FROM audit_events WHERE 1=1 AND action = $1 AND entity_type = $2 AND actor_id::text = $3"
	if query != want {
		t.Fatalf("expected %q, got %q", want, query)
	}
	if !reflect.DeepEqual(args, []any{ActionReview, EntityReview, "u1"}) {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestMarshalOptional(t *testing.T) {
	payload, err := marshalOptional(nil)
	if err != nil || payload != nil {
		t.Fatalf("expected nil payload, got %q %v", payload, err)
	}
	payload, err = marshalOptional(map[string]int{"weight": 5})
	if err != nil || string(payload) != `{"weight":5}` {
		t.Fatalf("unexpected payload %q %v", payload, err)
	}
}
