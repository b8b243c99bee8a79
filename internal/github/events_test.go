package github

import "testing"

const pushBody = `{
	"ref": "refs/heads/main",
	"deleted": false,
	"compare": "https://github.com/acme/widgets/compare/abc...def",
	"repository": {
		"full_name": "acme/widgets",
		"html_url": "https://github.com/acme/widgets",
		"stargazers_count": 12,
		"forks_count": 3
	},
	"sender": {"login": "octocat", "html_url": "https://github.com/octocat"},
	"pusher": {"name": "octocat"},
	"commits": [
		{
			"id": "abcdef1234567890",
			"message": "Fix the flux capacitor",
			"url": "https://github.com/acme/widgets/commit/abcdef1",
			"author": {"name": "Octo Cat", "username": "octocat"}
		}
	]
}`

func TestParseEvent_Push(t *testing.T) {
	ev, err := ParseEvent("push", []byte(pushBody))
	if err != nil {
		t.Fatalf("parse push: %v", err)
	}
	if ev.Repo.FullName != "acme/widgets" {
		t.Fatalf("expected repo acme/widgets, got %q", ev.Repo.FullName)
	}
	p, ok := ev.Payload.(*PushPayload)
	if !ok {
		t.Fatalf("expected *PushPayload, got %T", ev.Payload)
	}
	if len(p.Commits) != 1 || p.Commits[0].AuthorUsername != "octocat" {
		t.Fatalf("unexpected commits: %+v", p.Commits)
	}
	if p.Compare == "" || p.Ref != "refs/heads/main" {
		t.Fatalf("unexpected push payload: %+v", p)
	}
}

func TestParseEvent_MissingRepository(t *testing.T) {
	if _, err := ParseEvent("push", []byte(`{"ref":"refs/heads/main"}`)); err == nil {
		t.Fatalf("expected error for payload without repository descriptor")
	}
}

func TestParseEvent_UnknownKindHasNilPayload(t *testing.T) {
	body := `{"repository":{"full_name":"acme/widgets","html_url":"https://github.com/acme/widgets"}}`
	ev, err := ParseEvent("watch", []byte(body))
	if err != nil {
		t.Fatalf("parse unknown kind: %v", err)
	}
	if ev.Payload != nil {
		t.Fatalf("expected nil payload for unknown kind, got %T", ev.Payload)
	}
}

func TestParseEvent_Star(t *testing.T) {
	body := `{
		"action": "created",
		"repository": {"full_name": "acme/widgets", "html_url": "https://github.com/acme/widgets", "stargazers_count": 42},
		"sender": {"login": "fan", "html_url": "https://github.com/fan"}
	}`
	ev, err := ParseEvent("star", []byte(body))
	if err != nil {
		t.Fatalf("parse star: %v", err)
	}
	p, ok := ev.Payload.(*StarPayload)
	if !ok {
		t.Fatalf("expected *StarPayload, got %T", ev.Payload)
	}
	if p.Action != "created" || ev.Repo.Stars != 42 {
		t.Fatalf("unexpected star payload: %+v stars=%d", p, ev.Repo.Stars)
	}
}

func TestSplitRepo(t *testing.T) {
	owner, name, err := SplitRepo("acme/widgets")
	if err != nil || owner != "acme" || name != "widgets" {
		t.Fatalf("unexpected result: %s %s %v", owner, name, err)
	}
	for _, bad := range []string{"acme", "acme/", "/widgets", "a/b/c", ""} {
		if _, _, err := SplitRepo(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
