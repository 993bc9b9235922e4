package repositories

import "testing"

func TestOrderedColumns_Deterministic(t *testing.T) {
	record := map[string]any{"title": "t", "price": int64(1), "category": "c"}

	columns, args, err := orderedColumns(record)
	if err != nil {
		t.Fatalf("orderedColumns: %v", err)
	}
	want := []string{"category", "price", "title"}
	if len(columns) != len(want) {
		t.Fatalf("unexpected columns: %v", columns)
	}
	for i := range want {
		if columns[i] != want[i] {
			t.Fatalf("columns[%d] = %s, want %s", i, columns[i], want[i])
		}
		if args[i] != record[want[i]] {
			t.Fatalf("args[%d] = %v, want %v", i, args[i], record[want[i]])
		}
	}
}

func TestOrderedColumns_RejectsBadIdent(t *testing.T) {
	if _, _, err := orderedColumns(map[string]any{"title; drop table": "x"}); err == nil {
		t.Fatal("expected error for malformed column name")
	}
}

func TestValidateIdent(t *testing.T) {
	for _, name := range []string{"courses", "video_url", "_hidden", "t2"} {
		if err := validateIdent(name); err != nil {
			t.Fatalf("%q should be valid: %v", name, err)
		}
	}
	for _, name := range []string{"", "Courses", "1col", `ti"tle`, "a b"} {
		if err := validateIdent(name); err == nil {
			t.Fatalf("%q should be rejected", name)
		}
	}
}
