// Command kycdemo walks the onboarding flow end to end: restore stores, log in, fetch
// the profile through the request wrapper, fill in the draft and submit it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/go-kyc-onboarding/backend"
	"github.com/jrsteele09/go-kyc-onboarding/client"
	"github.com/jrsteele09/go-kyc-onboarding/internal/config"
	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/internal/logging"
	"github.com/jrsteele09/go-kyc-onboarding/internal/utils"
	"github.com/jrsteele09/go-kyc-onboarding/kv/storage"
	"github.com/jrsteele09/go-kyc-onboarding/navigation"
	"github.com/jrsteele09/go-kyc-onboarding/onboarding"
	"github.com/jrsteele09/go-kyc-onboarding/requester"
	"github.com/jrsteele09/go-kyc-onboarding/session"
	"github.com/jrsteele09/go-kyc-onboarding/theme"
	"github.com/jrsteele09/go-kyc-onboarding/token/keys"
	"github.com/jrsteele09/go-kyc-onboarding/users"
	"github.com/rs/zerolog/log"
)

// maxSubmitAttempts covers the injected server failures of the mock backend.
const maxSubmitAttempts = 3

type options struct {
	mode        string
	baseURL     string
	email       string
	password    string
	systemTheme string
	logout      bool
}

func main() {
	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())

	opts := options{}
	flag.StringVar(&opts.mode, "mode", "local", "backend to use: local (in process) or http")
	flag.StringVar(&opts.baseURL, "base-url", c.GetBaseURL(), "mock server URL for -mode=http")
	flag.StringVar(&opts.email, "email", c.GetDemoUserEmail(), "login email")
	flag.StringVar(&opts.password, "password", c.GetDemoUserPassword(), "login password")
	flag.StringVar(&opts.systemTheme, "system-theme", string(theme.Light), "system colour scheme: light or dark")
	flag.BoolVar(&opts.logout, "logout", false, "log out once the flow has finished")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c, opts); err != nil {
		log.Error().Err(err).Msg("onboarding demo failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, c config.Config, opts options) error {
	api, err := newAPI(c, opts)
	if err != nil {
		return err
	}

	stores, err := storage.Open(ctx, c)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close storage")
		}
	}()

	recorder := &navigation.Recorder{}
	nav := navigation.Multi{recorder, navigation.Logger{Log: log.Logger}}

	sessions := session.New(api, stores.Secure)
	drafts := onboarding.NewStore(stores.Plain)
	system, err := theme.Parse(opts.systemTheme)
	if err != nil {
		return err
	}
	themes := theme.New(stores.Plain, system)

	for name, hydrate := range map[string]func(context.Context) error{
		"session":    sessions.Hydrate,
		"onboarding": drafts.Hydrate,
		"theme":      themes.Hydrate,
	} {
		if err := hydrate(ctx); err != nil {
			log.Warn().Err(err).Str("store", name).Msg("starting with empty state")
		}
	}
	if err := sessions.WaitHydrated(ctx); err != nil {
		return err
	}
	log.Info().
		Str("status", string(sessions.Status())).
		Str("theme", string(themes.Effective())).
		Int("step", int(drafts.CurrentStep())).
		Msg("stores restored")

	req, err := requester.New(sessions, api, nav)
	if err != nil {
		return err
	}

	if sessions.Status() == session.StatusLoggedOut {
		nav.Navigate(navigation.Login)
		if err := sessions.Login(ctx, opts.email, opts.password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	user, err := requester.Do(ctx, req, api.Me)
	if errors.Is(err, apperrors.ErrSessionExpired) {
		// The restored session belonged to a backend that no longer knows it.
		if err := sessions.Login(ctx, opts.email, opts.password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		user, err = requester.Do(ctx, req, api.Me)
	}
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	if err := sessions.UpdateUser(*user); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s <%s>\n", user.FullName, user.Email)

	if user.OnboardingDone {
		nav.Navigate(navigation.Home)
		fmt.Println("Onboarding already complete")
	} else {
		nav.Navigate(navigation.Onboarding)
		receipt, err := onboard(ctx, req, api, drafts, user)
		if err != nil {
			return fmt.Errorf("onboarding: %w", err)
		}
		fmt.Printf("Submission %s %s\n", receipt.SubmissionID, receipt.Status)
		nav.Navigate(navigation.Home)
	}

	if opts.logout {
		sessions.Logout()
		nav.Navigate(navigation.Login)
	}

	fmt.Printf("Navigation: %v\n", recorder.Intents())
	return nil
}

func newAPI(c config.Config, opts options) (client.API, error) {
	switch opts.mode {
	case "http":
		return client.NewHTTP(opts.baseURL, c.GetClientID(), client.WithTimeout(c.GetRequestTimeout()))
	case "local":
		keyPair, err := keys.GenerateRSAKeyPair("kyc-demo", 2048)
		if err != nil {
			return nil, err
		}
		svc, err := backend.NewDemoService(c, keys.NewKeyPairSigner(keyPair))
		if err != nil {
			return nil, err
		}
		return client.NewLocal(svc)
	default:
		return nil, fmt.Errorf("unknown mode %q", opts.mode)
	}
}

// onboard fills the wizard step by step and submits the draft.
func onboard(ctx context.Context, req *requester.Requester, api client.API, drafts *onboarding.Store, user *users.User) (*backend.Receipt, error) {
	fill := map[onboarding.Step]func(){
		onboarding.StepProfile: func() {
			drafts.UpdateProfile(onboarding.ProfilePatch{
				FullName:    utils.Ptr(user.FullName),
				DateOfBirth: utils.Ptr("1990-01-15"),
				Nationality: utils.Ptr("GB"),
			})
		},
		onboarding.StepDocument: func() {
			drafts.UpdateDocument(onboarding.DocumentPatch{
				DocumentType:   utils.Ptr(onboarding.DocumentPassport),
				DocumentNumber: utils.Ptr("AB1234567"),
			})
		},
		onboarding.StepSelfie: func() {
			drafts.UpdateSelfie(onboarding.SelfiePatch{HasSelfie: utils.Ptr(true)})
		},
		onboarding.StepAddress: func() {
			drafts.UpdateAddress(onboarding.AddressPatch{
				AddressLine1: utils.Ptr("1 High Street"),
				City:         utils.Ptr("London"),
				Country:      utils.Ptr("GB"),
			})
		},
		onboarding.StepReview: func() {
			drafts.UpdateConsents(onboarding.ConsentsPatch{TermsAccepted: utils.Ptr(true)})
		},
	}

	for step := drafts.CurrentStep(); ; step = drafts.CurrentStep() {
		fill[step]()
		if step == onboarding.LastStep {
			break
		}
		if err := drafts.NextStep(); err != nil {
			return nil, err
		}
		log.Debug().Stringer("step", drafts.CurrentStep()).Msg("step complete")
	}

	var receipt *backend.Receipt
	submit := func(ctx context.Context, draft onboarding.Draft) error {
		r, err := requester.Do(ctx, req, func(ctx context.Context, token string) (*backend.Receipt, error) {
			return api.Submit(ctx, token, draft)
		})
		receipt = r
		return err
	}

	var err error
	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		err = drafts.Submit(ctx, submit)
		if err == nil || !apperrors.IsServerError(err) {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("submission failed, retrying")
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionExpired) {
			return nil, fmt.Errorf("session ended during submission: %w", err)
		}
		return nil, err
	}
	return receipt, nil
}
