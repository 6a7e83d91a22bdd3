package novelAuth

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/novelAuth/account"
	"github.com/MrEthical07/novelAuth/session"
)

func TestSetPremiumByAdmin(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	env.seed(t, "boss@example.com", adminSecret, account.RoleAdmin)
	u := env.seed(t, "alice@example.com", memberSecret, account.RoleUser)
	sess := env.login(t, "boss@example.com", adminSecret).Session

	err := env.engine.SetPremium(context.Background(), sess, SetPremiumRequest{
		TargetID: u.ID, Premium: true, CSRFToken: sess.CSRFToken,
	})
	if err != nil {
		t.Fatalf("set premium: %v", err)
	}
	if !env.reload(t, u.ID).Premium {
		t.Fatal("premium flag not persisted")
	}
	f, ok := sess.PopFlash()
	if !ok || f.Kind != session.FlashSuccess {
		t.Fatalf("flash = %+v", f)
	}
	if env.engine.MetricsSnapshot().Counters[MetricPremiumChanged] != 1 {
		t.Fatal("expected premium changed metric")
	}
}

func TestSetPremiumRejections(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	boss := env.seed(t, "boss@example.com", adminSecret, account.RoleAdmin)
	peer := env.seed(t, "peer@example.com", adminSecret, account.RoleAdmin)
	u := env.seed(t, "alice@example.com", memberSecret, account.RoleUser)

	adminSess := env.login(t, "boss@example.com", adminSecret).Session
	memberSess := env.login(t, "alice@example.com", memberSecret).Session
	anon := env.anonymous(t)

	tests := []struct {
		name   string
		sess   *session.Session
		req    SetPremiumRequest
		want   error
		target string
	}{
		{"member actor", memberSess, SetPremiumRequest{TargetID: u.ID, Premium: true, CSRFToken: memberSess.CSRFToken}, ErrUnauthorized, u.ID},
		{"anonymous actor", anon, SetPremiumRequest{TargetID: u.ID, Premium: true, CSRFToken: anon.CSRFToken}, ErrUnauthorized, u.ID},
		{"forged csrf", adminSess, SetPremiumRequest{TargetID: u.ID, Premium: true, CSRFToken: "forged"}, ErrCSRFInvalid, u.ID},
		{"admin target", adminSess, SetPremiumRequest{TargetID: peer.ID, Premium: true, CSRFToken: adminSess.CSRFToken}, ErrTargetNotEligible, peer.ID},
		{"self target", adminSess, SetPremiumRequest{TargetID: boss.ID, Premium: true, CSRFToken: adminSess.CSRFToken}, ErrTargetNotEligible, boss.ID},
		{"missing target", adminSess, SetPremiumRequest{TargetID: "no-such-id", Premium: true, CSRFToken: adminSess.CSRFToken}, ErrTargetNotEligible, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.engine.SetPremium(context.Background(), tt.sess, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.target != "" && env.reload(t, tt.target).Premium {
				t.Fatal("rejected request mutated state")
			}
			if PublicMessage(err) == "" {
				t.Fatal("expected a public message")
			}
		})
	}
}

func TestListMembers(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	env.seed(t, "boss@example.com", adminSecret, account.RoleAdmin)
	env.seed(t, "bob@example.com", memberSecret, account.RoleUser)
	env.seed(t, "alice@example.com", memberSecret, account.RoleUser, func(a *account.Account) {
		a.Premium = true
	})

	sess := env.login(t, "boss@example.com", adminSecret).Session
	members, err := env.engine.ListMembers(context.Background(), sess)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %+v", members)
	}
	for _, m := range members {
		if m.Email == "boss@example.com" {
			t.Fatal("admins must not be listed")
		}
		if m.Email == "alice@example.com" && !m.Premium {
			t.Fatal("premium flag missing from summary")
		}
	}

	memberSess := env.login(t, "bob@example.com", memberSecret).Session
	if _, err := env.engine.ListMembers(context.Background(), memberSess); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}
