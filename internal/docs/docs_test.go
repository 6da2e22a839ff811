package docs

import (
	"strings"
	"testing"
)

func TestTopicsListsEmbeddedContent(t *testing.T) {
	topics := Topics()
	if len(topics) == 0 {
		t.Fatal("expected embedded topics")
	}
	for _, want := range []string{"keys", "permissions", "scripting"} {
		found := false
		for _, topic := range topics {
			if topic == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing topic %q in %v", want, topics)
		}
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	body, ok := Get("  Keys ")
	if !ok {
		t.Fatal("expected topic to resolve")
	}
	if !strings.Contains(body, "# Keys") {
		t.Fatalf("unexpected body: %q", body[:40])
	}
}

func TestGetUnknownTopic(t *testing.T) {
	if _, ok := Get("no-such-topic"); ok {
		t.Fatal("unknown topic must not resolve")
	}
}
