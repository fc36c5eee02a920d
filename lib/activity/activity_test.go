package activity

import (
	"errors"
	"testing"
	"time"
)

// testTime is a fixed, millisecond-aligned reference time for
// deterministic serialization ids.
var testTime = time.Date(2013, 7, 8, 7, 39, 15, 0, time.UTC)

// TestSerializationID tests the composite id layout: epoch millis,
// 10 digit object id, 3 digit verb id.
func TestSerializationID(t *testing.T) {
	a := Activity{ActorID: 7, Verb: VerbLove, ObjectID: 42, Time: testTime}

	id, err := a.SerializationID()
	if err != nil {
		t.Fatalf("SerializationID() failed: %v", err)
	}

	want := ID("13732667550000000000042003")
	if id != want {
		t.Errorf("Expected id %s, got %s", want, id)
	}
}

// TestSerializationIDValidation tests that digit overflow and missing
// timestamps are rejected with a ValidationError.
func TestSerializationIDValidation(t *testing.T) {
	cases := map[string]Activity{
		"object id too wide": {ActorID: 1, Verb: VerbLove, ObjectID: maxObjectID, Time: testTime},
		"negative object id": {ActorID: 1, Verb: VerbLove, ObjectID: -1, Time: testTime},
		"verb id too wide":   {ActorID: 1, Verb: Verb{ID: maxVerbID}, ObjectID: 1, Time: testTime},
		"zero time":          {ActorID: 1, Verb: VerbLove, ObjectID: 1},
	}

	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := a.SerializationID(); err == nil {
				t.Error("Expected an error, got none")
			} else {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("Expected a ValidationError, got %T: %v", err, err)
				}
			}
		})
	}
}

// TestIDOrdering tests that Less orders ids numerically, also across
// different string widths.
func TestIDOrdering(t *testing.T) {
	cases := []struct {
		a, b ID
		less bool
	}{
		{"1", "2", true},
		{"2", "1", false},
		{"9", "10", true},
		{"13732667550000000000042003", "13732667550000000000042004", true},
		{"999", "1000", true},
		{"5", "5", false},
	}

	for _, c := range cases {
		if got := c.a.Less(c.b); got != c.less {
			t.Errorf("%s.Less(%s) = %v, expected %v", c.a, c.b, got, c.less)
		}
	}
}

// TestActivityEqual tests identity-based equality.
func TestActivityEqual(t *testing.T) {
	a := Activity{ActorID: 1, Verb: VerbLove, ObjectID: 42, Time: testTime}
	b := Activity{ActorID: 99, Verb: VerbLove, ObjectID: 42, Time: testTime}
	c := Activity{ActorID: 1, Verb: VerbLove, ObjectID: 43, Time: testTime}

	// actor is not part of the identity
	if !a.Equal(b) {
		t.Error("Activities with same (time, object, verb) should be equal")
	}
	if a.Equal(c) {
		t.Error("Activities with different object ids should not be equal")
	}
}

// TestDehydrateHydrate tests the id-only round trip through a lookup map.
func TestDehydrateHydrate(t *testing.T) {
	a := Activity{ActorID: 1, Verb: VerbAdd, ObjectID: 7, Time: testTime}

	d, err := a.Dehydrate()
	if err != nil {
		t.Fatalf("Dehydrate() failed: %v", err)
	}

	byID := map[ID]Activity{a.MustSerializationID(): a}
	got, err := d.Hydrate(byID)
	if err != nil {
		t.Fatalf("Hydrate() failed: %v", err)
	}
	if !got.Equal(a) {
		t.Errorf("Hydrated activity doesn't match original: %+v vs %+v", got, a)
	}

	// missing id must surface ErrActivityNotFound
	_, err = DehydratedActivity{ID: "123"}.Hydrate(byID)
	if !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("Expected ErrActivityNotFound, got %v", err)
	}
}

// TestVerbRegistry tests registration, lookup and duplicate detection.
func TestVerbRegistry(t *testing.T) {
	r := NewVerbRegistry()

	if err := r.Register(VerbFollow); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// re-registering the identical verb is a no-op
	if err := r.Register(VerbFollow); err != nil {
		t.Errorf("Re-registering the same verb should succeed, got %v", err)
	}

	// a different verb under a taken id must fail
	clash := Verb{ID: VerbFollow.ID, Infinitive: "poke", PastTense: "poked"}
	if err := r.Register(clash); err == nil {
		t.Error("Expected an error for a conflicting verb id, got none")
	}

	// out of range ids must fail
	if err := r.Register(Verb{ID: maxVerbID, Infinitive: "x"}); err == nil {
		t.Error("Expected an error for an out of range verb id, got none")
	}

	v, ok := r.ByID(VerbFollow.ID)
	if !ok {
		t.Fatal("ByID() should find the registered verb")
	}
	if v != VerbFollow {
		t.Errorf("Expected %+v, got %+v", VerbFollow, v)
	}
}

// TestDefaultRegistry tests that all reference verbs are pre-loaded.
func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	for _, v := range []Verb{VerbFollow, VerbComment, VerbLove, VerbAdd} {
		got, ok := r.ByID(v.ID)
		if !ok || got != v {
			t.Errorf("Default registry missing verb %q", v.Infinitive)
		}
	}
}
