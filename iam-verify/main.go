package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kadisoka/foundation/pkg/errors"

	"github.com/kadisoka/iam-verify/pkg/errreport"
	"github.com/kadisoka/iam-verify/pkg/iam/logging"
	"github.com/kadisoka/iam-verify/pkg/pnv10n"
	"github.com/kadisoka/iam-verify/pkg/v10nflow"
)

var log = logging.NewPkgLogger()

var (
	revisionID     = "unknown"
	buildTimestamp = "unknown"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: iam-verify [phone-number]\n\n%v\n", err)
		os.Exit(2)
	}

	closeLog, err := setUpLogging(*cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging: %v\n", err)
		os.Exit(2)
	}
	defer closeLog()

	log.Info().Str("revision", revisionID).Str("build", buildTimestamp).
		Msg("Starting phone number verification")

	if err = run(*cfg); err != nil {
		log.Error().Err(err).Msg("Verification")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		closeLog()
		os.Exit(1)
	}
}

func setUpLogging(cfg Config) (closeLog func(), err error) {
	if cfg.LogLevel != "" {
		if err = logging.SetLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	if cfg.LogFile == "" {
		logging.SetOutput(io.Discard)
		return func() {}, nil
	}
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, errors.Wrap("log file opening", err)
	}
	logging.SetOutput(logFile)
	return func() {
		logging.SetOutput(io.Discard)
		logFile.Close()
	}, nil
}

func run(cfg Config) error {
	client, err := pnv10n.NewClient(cfg.Client, nil)
	if err != nil {
		return err
	}

	reporter, err := errreport.NewFromConfig(cfg.ErrorReporting)
	if err != nil {
		return errors.Wrap("error reporter initialization", err)
	}

	phoneNumber, err := cfg.Subject()
	if err != nil {
		return err
	}

	if phoneNumber.IsTestNumber() {
		log.Warn().Str("phone_number", phoneNumber.Masked()).
			Msg("Test number; the server won't deliver a code")
	}

	verification, err := client.RequestCode(context.Background(), cfg.PhoneNumber,
		[]pnv10n.VerificationMethod{pnv10n.VerificationMethodSMS}, nil)
	if err != nil {
		return errors.Wrap("verification code request", err)
	}
	if !verification.IsPending() {
		fmt.Fprintf(os.Stdout, "%s needs no verification.\n", phoneNumber.Masked())
		return nil
	}
	log.Info().Str("verification", verification.Reference()).
		Msg("Verification code requested")

	var program *tea.Program
	send := func(msg tea.Msg) { program.Send(msg) }

	ctrl, err := v10nflow.NewController(cfg.PhoneNumber, cfg.Flow, v10nflow.Collaborators{
		Submitter: client,
		Requester: client,
		Input:     inputField{send: send},
		Reporter:  reporter,
	})
	if err != nil {
		return errors.Wrap("verification flow initialization", err)
	}
	defer ctrl.Teardown()

	screen := newScreenModel(ctrl, phoneNumber.Masked(),
		cfg.Flow.ResendInterval, cfg.Flow.CodeLength)
	program = tea.NewProgram(screen, tea.WithReportFocus())
	ctrl.Subscribe(func(ev v10nflow.Event) { send(flowEventMsg{event: ev}) })

	if _, err = program.Run(); err != nil {
		return errors.Wrap("screen", err)
	}

	session := ctrl.Session()
	log.Info().Str("session", session.ID.String()).
		Bool("verified", session.Verified).
		Msg("Verification screen closed")
	if !session.Verified {
		return errors.Msg("phone number not verified (reference " +
			client.Verification().Reference() + ")")
	}
	fmt.Fprintf(os.Stdout, "%s verified.\n", phoneNumber.Masked())
	return nil
}
