package postgres

import "testing"

func TestLockKey_Stable(t *testing.T) {
	a := LockKey("branch/main")
	b := LockKey("branch/main")
	if a != b {
		t.Fatalf("LockKey not stable: %d != %d", a, b)
	}
}

func TestLockKey_DistinguishesPointers(t *testing.T) {
	keys := map[int64]string{}
	for _, pointer := range []string{"branch/main", "branch/release", "pr/42", "pr/7"} {
		k := LockKey(pointer)
		if prev, ok := keys[k]; ok {
			t.Fatalf("LockKey collision: %q and %q both map to %d", prev, pointer, k)
		}
		keys[k] = pointer
	}
}
