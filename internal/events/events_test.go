package events

import (
	"encoding/json"
	"testing"
)

func TestMarshalFrameShape(t *testing.T) {
	data, err := Marshal(New(TokenPayload{Index: 2, Token: "login", TaskID: "t1"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if _, ok := raw["type"]; !ok {
		t.Fatal("frame missing type field")
	}
	if _, ok := raw["data"]; !ok {
		t.Fatal("frame missing data field")
	}

	f, err := UnmarshalFrame(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Type != KindToken {
		t.Fatalf("expected type %q, got %q", KindToken, f.Type)
	}

	var p TokenPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.Index != 2 || p.Token != "login" || p.TaskID != "t1" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestPayloadKinds(t *testing.T) {
	cases := []struct {
		payload Payload
		want    Kind
	}{
		{StatusPayload{}, KindStatus},
		{TokenPayload{}, KindToken},
		{FileDiffPayload{}, KindFileDiff},
		{ErrorPayload{}, KindError},
		{EndPayload{}, KindEnd},
		{ReloadPayload{}, KindReload},
	}
	for _, c := range cases {
		if got := New(c.payload).Kind; got != c.want {
			t.Fatalf("expected kind %q, got %q", c.want, got)
		}
	}
}
