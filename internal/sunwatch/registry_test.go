package sunwatch

import (
	"reflect"
	"testing"
)

func TestRegistrySubscribeUpsert(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	r.Subscribe(10, 1, "Alice")
	r.Subscribe(10, 2, "Bob")
	r.Subscribe(10, 1, "Alicia") // rename: latest name wins

	got := r.MembersOf(10)
	want := []Member{{UserID: 1, Name: "Alicia"}, {UserID: 2, Name: "Bob"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MembersOf = %+v, want %+v", got, want)
	}
}

func TestRegistryMembersOfEmpty(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	if got := r.MembersOf(42); len(got) != 0 {
		t.Fatalf("MembersOf unknown chat = %+v, want empty", got)
	}
}

func TestRegistryChatsSorted(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Subscribe(30, 1, "c")
	r.Subscribe(-5, 1, "a")
	r.Subscribe(10, 1, "b")

	got := r.Chats()
	want := []int64{-5, 10, 30}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Chats = %v, want %v", got, want)
	}
}
