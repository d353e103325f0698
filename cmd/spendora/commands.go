package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-spendora-client/auth"
	"github.com/jrsteele09/go-spendora-client/internal/ui"
	"github.com/jrsteele09/go-spendora-client/token"
	"github.com/jrsteele09/go-spendora-client/verification"
)

const maxCodeAttempts = 5

// errReported ends a command whose failure has already been printed.
var errReported = errors.New("command failed")

type command struct {
	summary string
	run     func(ctx context.Context, a *app, p *prompter, args []string) error
}

var commands = map[string]command{
	"login":           {"Sign in with email and password", runLogin},
	"register":        {"Create an account", runRegister},
	"verify":          {"Submit an emailed verification code", runVerify},
	"forgot-password": {"Request a password reset code and set a new password", runForgotPassword},
	"reset-password":  {"Set a new password after a verified reset code", runResetPassword},
	"logout":          {"Forget the stored session", runLogout},
	"whoami":          {"Show the signed in user", runWhoami},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("spendora "+name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func runLogin(ctx context.Context, a *app, p *prompter, args []string) error {
	var creds auth.Credentials
	fs := newFlagSet("login", p.out)
	fs.StringVar(&creds.Email, "email", "", "Account email")
	fs.StringVar(&creds.Password, "password", "", "Account password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := p.fill(&creds.Email, "Email"); err != nil {
		return err
	}
	if err := p.fill(&creds.Password, "Password"); err != nil {
		return err
	}

	res := a.service.Login(ctx, creds)
	if !res.Success {
		return report(p.out, res)
	}
	if res.RequiresOTP {
		printMessage(p.out, res.Message)
		if _, err := verifyCode(ctx, a, p, *res.Challenge); err != nil {
			return err
		}
	}
	printSession(p.out, a.service.Session())
	return nil
}

func runRegister(ctx context.Context, a *app, p *prompter, args []string) error {
	var data verification.RegistrationData
	fs := newFlagSet("register", p.out)
	fs.StringVar(&data.Email, "email", "", "Account email")
	fs.StringVar(&data.FirstName, "first", "", "First name")
	fs.StringVar(&data.LastName, "last", "", "Last name")
	fs.StringVar(&data.Password, "password", "", "Password")
	fs.StringVar(&data.ConfirmPassword, "confirm", "", "Password again")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	for _, f := range []struct {
		value    *string
		question string
	}{
		{&data.Email, "Email"},
		{&data.FirstName, "First name"},
		{&data.LastName, "Last name"},
		{&data.Password, "Password"},
		{&data.ConfirmPassword, "Confirm password"},
	} {
		if err := p.fill(f.value, f.question); err != nil {
			return err
		}
	}

	res := a.service.Register(ctx, data)
	if !res.Success {
		return report(p.out, res)
	}
	printMessage(p.out, res.Message)

	res, err := verifyCode(ctx, a, p, *res.Challenge)
	if err != nil {
		return err
	}
	printMessage(p.out, res.Message)
	if session := a.service.Session(); session.IsAuthenticated() {
		printSession(p.out, session)
	}
	return nil
}

func runVerify(ctx context.Context, a *app, p *prompter, args []string) error {
	var kind, code string
	var data verification.RegistrationData
	fs := newFlagSet("verify", p.out)
	fs.StringVar(&kind, "type", string(verification.TypeLogin), "registration, login or password_reset")
	fs.StringVar(&data.Email, "email", "", "Account email")
	fs.StringVar(&code, "code", "", "Verification code")
	fs.StringVar(&data.FirstName, "first", "", "First name (registration)")
	fs.StringVar(&data.LastName, "last", "", "Last name (registration)")
	fs.StringVar(&data.Password, "password", "", "Password (registration)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	purpose, err := verification.ParseType(kind)
	if err != nil {
		return err
	}
	if err := p.fill(&data.Email, "Email"); err != nil {
		return err
	}
	if err := p.fill(&code, "Verification code"); err != nil {
		return err
	}

	var challenge verification.Challenge
	switch purpose.(type) {
	case verification.Registration:
		data.ConfirmPassword = data.Password
		challenge = verification.NewRegistration(data)
	case verification.PasswordReset:
		challenge = verification.NewPasswordReset(data.Email)
	default:
		challenge = verification.NewLogin(data.Email)
	}

	res := a.service.VerifyOTP(ctx, challenge.WithOTP(code))
	if !res.Success {
		return report(p.out, res)
	}
	printMessage(p.out, res.Message)
	if challenge.Type() == verification.TypePasswordReset {
		fmt.Fprintln(p.out, ui.Dim.Render("Run \"spendora reset-password\" to choose a new password."))
	}
	if session := a.service.Session(); session.IsAuthenticated() {
		printSession(p.out, session)
	}
	return nil
}

func runForgotPassword(ctx context.Context, a *app, p *prompter, args []string) error {
	var email string
	fs := newFlagSet("forgot-password", p.out)
	fs.StringVar(&email, "email", "", "Account email")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := p.fill(&email, "Email"); err != nil {
		return err
	}

	res := a.service.RequestPasswordReset(ctx, email)
	if !res.Success {
		return report(p.out, res)
	}
	printMessage(p.out, res.Message)

	res, err := verifyCode(ctx, a, p, *res.Challenge)
	if err != nil {
		return err
	}
	printMessage(p.out, res.Message)
	return choosePassword(ctx, a, p, *res.Challenge, "", "")
}

func runResetPassword(ctx context.Context, a *app, p *prompter, args []string) error {
	var password, confirm string
	fs := newFlagSet("reset-password", p.out)
	fs.StringVar(&password, "password", "", "New password")
	fs.StringVar(&confirm, "confirm", "", "New password again")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	challenge, ok := a.service.ResumePasswordReset()
	if !ok {
		return report(p.out, auth.Result{Message: auth.MsgMissingResetInfo})
	}
	fmt.Fprintln(p.out, ui.Field("Resetting", challenge.Email))
	return choosePassword(ctx, a, p, challenge, password, confirm)
}

func runLogout(_ context.Context, a *app, p *prompter, args []string) error {
	if err := newFlagSet("logout", p.out).Parse(args); err != nil {
		return errUsage
	}
	a.service.Logout()
	printMessage(p.out, "Signed out.")
	return nil
}

func runWhoami(ctx context.Context, a *app, p *prompter, args []string) error {
	if err := newFlagSet("whoami", p.out).Parse(args); err != nil {
		return errUsage
	}
	a.service.Bootstrap(ctx)
	session := a.service.Session()
	if !session.IsAuthenticated() {
		if session.LastError != "" {
			fmt.Fprintln(p.out, ui.Warning.Render(session.LastError))
		}
		fmt.Fprintln(p.out, "Not signed in.")
		return nil
	}
	printSession(p.out, session)
	return nil
}

// verifyCode prompts for the code sent for challenge until it is accepted.
// Answering "r" asks for the code to be sent again.
func verifyCode(ctx context.Context, a *app, p *prompter, challenge verification.Challenge) (auth.Result, error) {
	for attempt := 0; attempt < maxCodeAttempts; {
		code, err := p.ask("Verification code (r to resend)")
		if err != nil {
			return auth.Result{}, err
		}
		if strings.EqualFold(code, "r") {
			res := a.service.ResendOTP(ctx, challenge)
			printResult(p.out, res)
			continue
		}

		attempt++
		res := a.service.VerifyOTP(ctx, challenge.WithOTP(code))
		if res.Success {
			return res, nil
		}
		printResult(p.out, res)
	}
	return auth.Result{}, errReported
}

func choosePassword(ctx context.Context, a *app, p *prompter, challenge verification.Challenge, password, confirm string) error {
	if err := p.fill(&password, "New password"); err != nil {
		return err
	}
	if err := p.fill(&confirm, "Confirm new password"); err != nil {
		return err
	}
	res := a.service.ResetPassword(ctx, challenge, password, confirm)
	if !res.Success {
		return report(p.out, res)
	}
	printMessage(p.out, res.Message)
	return nil
}

// report prints a failed result and returns errReported.
func report(out io.Writer, res auth.Result) error {
	printResult(out, res)
	return errReported
}

func printResult(out io.Writer, res auth.Result) {
	if res.Success {
		printMessage(out, res.Message)
		return
	}
	fmt.Fprintln(out, ui.Failure.Render(res.Message))
	if len(res.Fields) > 1 {
		fields := make([]string, 0, len(res.Fields))
		for f := range res.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(out, "  %s\n", ui.Field(f, res.Fields[f]))
		}
	}
}

func printMessage(out io.Writer, msg string) {
	if msg != "" {
		fmt.Fprintln(out, ui.Success.Render(msg))
	}
}

func printSession(out io.Writer, s auth.Session) {
	fmt.Fprintln(out, ui.Title.Render("Session"))
	fmt.Fprintln(out, ui.Field("State", s.State.String()))
	if u := s.User; u != nil {
		if name := u.FullName(); name != "" {
			fmt.Fprintln(out, ui.Field("Name", name))
		}
		if u.Email != "" {
			fmt.Fprintln(out, ui.Field("Email", u.Email))
		}
		if u.ID != 0 {
			fmt.Fprintln(out, ui.Field("User ID", strconv.FormatInt(u.ID, 10)))
		}
	}
	if exp, ok := token.ExpiresAt(s.AccessToken); ok {
		fmt.Fprintln(out, ui.Field("Token expires", exp.Local().Format(time.RFC1123)))
	}
	if s.ProfileError != "" {
		fmt.Fprintln(out, ui.Warning.Render(s.ProfileError))
	}
}
