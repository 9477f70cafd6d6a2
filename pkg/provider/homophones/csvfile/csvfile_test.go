package csvfile_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/homophoner/pkg/provider/homophones/csvfile"
)

func TestParse(t *testing.T) {
	t.Parallel()

	input := "# comment\nright,write,rite,wright\nbuy, by ,bye\nlonely\nread,reed\nread,red\n"
	groups, err := csvfile.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tests := []struct {
		word string
		want []string
	}{
		{"write", []string{"right", "write", "rite", "wright"}},
		{"by", []string{"buy", "by", "bye"}},
		{"lonely", nil},
		{"read", []string{"read", "reed", "red"}},
		{"red", []string{"read", "red"}},
	}
	for _, tc := range tests {
		if got := groups[tc.word]; !reflect.DeepEqual(got, tc.want) {
			t.Errorf("groups[%q] = %v, want %v", tc.word, got, tc.want)
		}
	}
}

func TestParse_StrayQuoteKeepsOtherLines(t *testing.T) {
	t.Parallel()

	input := "right,write,rite\nto,t\"o,too\nbuy,by,bye\n"
	groups, err := csvfile.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := groups["rite"]; !reflect.DeepEqual(got, []string{"right", "write", "rite"}) {
		t.Errorf("groups[rite] = %v", got)
	}
	if got := groups["bye"]; !reflect.DeepEqual(got, []string{"buy", "by", "bye"}) {
		t.Errorf("groups[bye] = %v", got)
	}
}

func TestSource_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	s, err := csvfile.New(filepath.Join(t.TempDir(), "homophones.csv"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := s.Homophones(context.Background(), "right")
	if err != nil || got != nil {
		t.Errorf("Homophones = %v, %v; want nil, nil", got, err)
	}
}

func TestSource_ReloadsOnChange(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "homophones.csv")
	if err := os.WriteFile(path, []byte("right,write\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, _ := csvfile.New(path)
	ctx := context.Background()

	got, err := s.Homophones(ctx, "Right")
	if err != nil {
		t.Fatalf("Homophones: %v", err)
	}
	if want := []string{"right", "write"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Homophones = %v, want %v", got, want)
	}

	if err := os.WriteFile(path, []byte("right,write,rite\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	got, _ = s.Homophones(ctx, "right")
	if want := []string{"right", "write", "rite"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after edit Homophones = %v, want %v", got, want)
	}
}
