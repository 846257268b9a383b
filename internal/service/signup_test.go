package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"founder-waitlist/internal/domain"
	"founder-waitlist/internal/mailer"
)

// fakeRepo in-memory WaitlistRepository for service tests.
type fakeRepo struct {
	subs       []domain.Subscriber
	answers    []domain.SurveyResponse
	createErr  error
	countErr   error
	nowForSubs time.Time
}

func newFakeRepo() *fakeRepo { return &fakeRepo{nowForSubs: time.Now()} }

func (f *fakeRepo) CreateSignup(_ context.Context, sub *domain.Subscriber, answers []domain.SurveyResponse) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, s := range f.subs {
		if s.Email == sub.Email {
			return domain.ErrEmailTaken
		}
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = f.nowForSubs
	}
	f.subs = append(f.subs, *sub)
	for i := range answers {
		answers[i].SubscriberID = sub.ID
	}
	f.answers = append(f.answers, answers...)
	return nil
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	for i := range f.subs {
		if f.subs[i].Email == email {
			return &f.subs[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CountSubscribers(context.Context) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.subs)), nil
}

func (f *fakeRepo) CountSince(_ context.Context, t time.Time) (int64, error) {
	var n int64
	for _, s := range f.subs {
		if !s.CreatedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) SignupTimes(context.Context) ([]time.Time, error) {
	out := make([]time.Time, 0, len(f.subs))
	for _, s := range f.subs {
		out = append(out, s.CreatedAt)
	}
	return out, nil
}

func (f *fakeRepo) AnswerDistribution(_ context.Context, q domain.QuestionID) (map[string]int64, error) {
	out := map[string]int64{}
	for _, a := range f.answers {
		if a.QuestionID == q {
			out[a.Answer]++
		}
	}
	return out, nil
}

func (f *fakeRepo) ListSubscribers(_ context.Context, offset, limit int, _ string) ([]domain.Subscriber, int64, error) {
	if offset >= len(f.subs) {
		return nil, int64(len(f.subs)), nil
	}
	end := min(offset+limit, len(f.subs))
	return f.subs[offset:end], int64(len(f.subs)), nil
}

func (f *fakeRepo) Emails(context.Context) ([]string, error) {
	out := make([]string, 0, len(f.subs))
	for _, s := range f.subs {
		out = append(out, s.Email)
	}
	return out, nil
}

type fakeWelcome struct {
	calls []string
	err   error
}

func (f *fakeWelcome) SendWelcome(_ context.Context, email string, _ mailer.WelcomeProfile) error {
	f.calls = append(f.calls, email)
	return f.err
}

type fakeHub struct {
	events []string
	counts []map[string]any
}

func (f *fakeHub) Broadcast(event string, payload map[string]any) {
	f.events = append(f.events, event)
	f.counts = append(f.counts, payload)
}

func validInput() SignupInput {
	return SignupInput{
		Email:            "a@x.com",
		PrimarySkill:     "design",
		BiggestChallenge: "finding_clients",
		InterestLevel:    5,
	}
}

func TestSubmit_FirstSignup(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	mail := &fakeWelcome{}
	hub := &fakeHub{}
	svc := NewSignupService(repo, mail, hub, 500, nil)

	res, err := svc.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.Position != 1 {
		t.Errorf("Position = %d, want 1", res.Position)
	}
	if res.SubscriberID == "" {
		t.Error("SubscriberID should not be empty")
	}
	if !res.EmailSent {
		t.Error("EmailSent should be true when mailer succeeds")
	}
	if len(repo.answers) != 3 {
		t.Fatalf("stored %d responses, want 3", len(repo.answers))
	}

	// 三条答案问题各一条，interest 存十进制字符串
	seen := map[domain.QuestionID]string{}
	for _, a := range repo.answers {
		seen[a.QuestionID] = a.Answer
	}
	if seen[domain.QuestionPrimarySkill] != "design" {
		t.Errorf("primary_skill answer = %q", seen[domain.QuestionPrimarySkill])
	}
	if seen[domain.QuestionInterestLevel] != "5" {
		t.Errorf("interest_level answer = %q, want \"5\"", seen[domain.QuestionInterestLevel])
	}

	if len(mail.calls) != 1 || mail.calls[0] != "a@x.com" {
		t.Errorf("welcome mail calls = %v", mail.calls)
	}
	if len(hub.events) != 2 || hub.events[0] != "counter_update" || hub.events[1] != "spots_update" {
		t.Errorf("broadcast events = %v", hub.events)
	}
	if got := hub.counts[1]["spots"]; got != int64(499) {
		t.Errorf("spots payload = %v, want 499", got)
	}
}

func TestSubmit_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewSignupService(repo, &fakeWelcome{}, &fakeHub{}, 500, nil)

	if _, err := svc.Submit(context.Background(), validInput()); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	_, err := svc.Submit(context.Background(), validInput())
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("second Submit() error = %v, want ErrEmailTaken", err)
	}
	if len(repo.subs) != 1 {
		t.Errorf("store holds %d subscribers, want exactly 1", len(repo.subs))
	}
}

func TestSubmit_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*SignupInput)
		wantErr string // 期望出现在 Fields 里的 key；空表示应成功
	}{
		{"valid", func(in *SignupInput) {}, ""},
		{"missing email", func(in *SignupInput) { in.Email = "" }, "email"},
		{"malformed email", func(in *SignupInput) { in.Email = "not-an-email" }, "email"},
		{"missing skill", func(in *SignupInput) { in.PrimarySkill = "  " }, "primarySkill"},
		{"missing challenge", func(in *SignupInput) { in.BiggestChallenge = "" }, "biggestChallenge"},
		{"interest 0", func(in *SignupInput) { in.InterestLevel = 0 }, "interestLevel"},
		{"interest 6", func(in *SignupInput) { in.InterestLevel = 6 }, "interestLevel"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeRepo()
			svc := NewSignupService(repo, nil, nil, 500, nil)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Submit(context.Background(), in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Submit() error = %v, want nil", err)
				}
				return
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Submit() error = %v, want ValidationError", err)
			}
			if _, ok := ve.Fields[tt.wantErr]; !ok {
				t.Errorf("Fields = %v, want key %q", ve.Fields, tt.wantErr)
			}
			if len(repo.subs) != 0 {
				t.Error("validation failure must not persist anything")
			}
		})
	}
}

func TestSubmit_InterestBoundsAccepted(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewSignupService(repo, nil, nil, 500, nil)
	for i := 1; i <= 5; i++ {
		in := validInput()
		in.Email = "u" + strconv.Itoa(i) + "@x.com"
		in.InterestLevel = i
		if _, err := svc.Submit(context.Background(), in); err != nil {
			t.Errorf("interestLevel %d rejected: %v", i, err)
		}
	}
}

func TestSubmit_MailFailureDoesNotUnwind(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	mail := &fakeWelcome{err: errors.New("smtp down")}
	svc := NewSignupService(repo, mail, &fakeHub{}, 500, nil)

	res, err := svc.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Submit() error = %v, mail failure must not fail signup", err)
	}
	if res.EmailSent {
		t.Error("EmailSent should be false when mailer fails")
	}
	if len(repo.subs) != 1 {
		t.Error("signup must stay committed after mail failure")
	}
}

func TestSubmit_SpotsFloorAtZero(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	hub := &fakeHub{}
	svc := NewSignupService(repo, nil, hub, 2, nil)

	for i := 0; i < 3; i++ {
		in := validInput()
		in.Email = "u" + strconv.Itoa(i) + "@x.com"
		if _, err := svc.Submit(context.Background(), in); err != nil {
			t.Fatalf("signup %d past the cap rejected: %v", i, err)
		}
	}
	// 名额到顶后贴零，但报名不被拦截
	last := hub.counts[len(hub.counts)-1]
	if got := last["spots"]; got != int64(0) {
		t.Errorf("spots = %v, want 0", got)
	}
}
