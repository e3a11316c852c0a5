package pnv10n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	errs "github.com/kadisoka/foundation/pkg/errors"
	"golang.org/x/text/language"

	"github.com/kadisoka/iam-verify/pkg/iam"
	"github.com/kadisoka/iam-verify/pkg/v10nflow"
)

const errorResponseSizeMax = 64 << 10

// Client talks to the identity server on behalf of the signed-in user.
// It remembers the latest verification the server created so that
// SubmitCode can confirm against it.
type Client struct {
	config         Config
	httpClient     *http.Client
	acceptLanguage string
	userAgent      string

	mu           sync.Mutex
	verification Verification
}

var (
	_ v10nflow.CodeSubmitter = &Client{}
	_ v10nflow.CodeRequester = &Client{}
)

// NewClient creates a Client. If httpClient is nil, a new one is used.
func NewClient(config Config, httpClient *http.Client) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, ConfigurationError{Err: err}
	}
	config.ServerBaseURL = strings.TrimRight(config.ServerBaseURL, "/")

	var langTags []language.Tag
	if config.PreferredLanguages != "" {
		tags, _, err := language.ParseAcceptLanguage(config.PreferredLanguages)
		if err != nil {
			return nil, ConfigurationError{Err: errs.Wrap("preferred languages", err)}
		}
		langTags = tags
	}
	if len(langTags) == 0 {
		langTags = []language.Tag{messageLocaleDefault}
	}
	langStrs := make([]string, 0, len(langTags))
	for _, tag := range langTags {
		langStrs = append(langStrs, tag.String())
	}

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	runtimeVersion := "go/" + strings.TrimPrefix(runtime.Version(), "go")

	return &Client{
		config:         config,
		httpClient:     httpClient,
		acceptLanguage: strings.Join(langStrs, ", "),
		userAgent:      "Kadisoka-IAM-Verify/1.0 " + runtimeVersion + " (" + runtime.GOOS + ")",
	}, nil
}

// Verification returns the latest verification created by the server.
func (client *Client) Verification() Verification {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.verification
}

// RequestCode asks the server to send a code to the phone number. The
// server might decide that no verification is needed, in which case the
// returned Verification is not pending.
func (client *Client) RequestCode(
	ctx context.Context,
	subject string,
	verificationMethods []VerificationMethod,
	challengeToken *iam.ChallengeToken,
) (Verification, error) {
	phoneNumber, err := iam.PhoneNumberFromString(subject, client.config.DefaultRegion)
	if err != nil {
		return Verification{}, InvalidPhoneNumberError{Err: err}
	}
	if !phoneNumber.IsValid() && !phoneNumber.IsTestNumber() {
		return Verification{}, InvalidPhoneNumberError{}
	}

	reqEntity := phoneNumberPutRequest{
		PhoneNumber:         phoneNumber.String(),
		VerificationMethods: []string{},
	}
	for _, method := range verificationMethods {
		if s := method.String(); s != "" {
			reqEntity.VerificationMethods = append(reqEntity.VerificationMethods, s)
		}
	}
	if challengeToken != nil {
		reqEntity.ChallengeToken = &challengeTokenJSON{
			Provider: challengeToken.Provider,
			Value:    challengeToken.Value,
		}
	}

	callCtx, _ := iam.CallContextFrom(ctx)
	log.WithContext(callCtx).Debug().
		Str("phone_number", phoneNumber.Masked()).
		Msg("Requesting verification code")

	resp, err := client.do(ctx, http.MethodPut, userPhoneNumberPath, reqEntity)
	if err != nil {
		return Verification{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
	case http.StatusOK, http.StatusNoContent:
		client.setVerification(Verification{})
		return Verification{}, nil
	default:
		return Verification{}, errorFromResponse(resp)
	}

	var respEntity phoneNumberPutResponse
	if err = json.NewDecoder(resp.Body).Decode(&respEntity); err != nil {
		return Verification{}, GatewayError{Err: errs.Wrap("response decoding", err)}
	}
	if respEntity.VerificationID == 0 {
		return Verification{}, GatewayError{Err: errors.New("response missing verification ID")}
	}

	codeExpiry := respEntity.CodeExpiry
	verification := Verification{
		ID:         respEntity.VerificationID,
		CodeExpiry: &codeExpiry,
	}
	client.setVerification(verification)
	return verification, nil
}

// RequestNewCode asks the server to send another code by text message.
func (client *Client) RequestNewCode(
	ctx context.Context,
	subject string,
	challengeToken *iam.ChallengeToken,
) error {
	_, err := client.RequestCode(ctx, subject,
		[]VerificationMethod{VerificationMethodSMS}, challengeToken)
	return err
}

// SubmitCode confirms the latest verification with the code the user
// entered.
func (client *Client) SubmitCode(ctx context.Context, req v10nflow.SubmitRequest) error {
	verification := client.Verification()
	if !verification.IsPending() {
		return ErrNoVerification
	}
	if req.Code == "" {
		return errs.ArgMsg("req.Code", "empty")
	}

	resp, err := client.do(ctx, http.MethodPost, userPhoneNumberConfirmationPath,
		verificationConfirmationPostRequest{
			VerificationID: verification.ID,
			Code:           req.Code,
		})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusBadRequest, http.StatusGone:
		errResp := readErrorResponse(resp)
		if err = errorFromCode(errResp); err != nil {
			return err
		}
		if resp.StatusCode == http.StatusGone {
			return iam.ErrVerificationCodeExpired
		}
		return iam.ErrVerificationCodeMismatch
	}
	return errorFromResponse(resp)
}

func (client *Client) setVerification(verification Verification) {
	client.mu.Lock()
	client.verification = verification
	client.mu.Unlock()
}

func (client *Client) do(
	ctx context.Context,
	method string,
	path string,
	reqEntity interface{},
) (*http.Response, error) {
	// Extract before the context gets wrapped.
	callCtx, _ := iam.CallContextFrom(ctx)

	if timeout := client.config.RequestTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		// The body is read by the caller after we return.
		resp, err := client.doWith(ctx, callCtx, method, path, reqEntity)
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	return client.doWith(ctx, callCtx, method, path, reqEntity)
}

func (client *Client) doWith(
	ctx context.Context,
	callCtx iam.CallContext,
	method string,
	path string,
	reqEntity interface{},
) (*http.Response, error) {
	payload, err := json.Marshal(reqEntity)
	if err != nil {
		return nil, errs.Wrap("request encoding", err)
	}

	req, err := http.NewRequestWithContext(ctx, method,
		client.config.ServerBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, ConfigurationError{Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", client.acceptLanguage)
	req.Header.Set("User-Agent", client.userAgent)
	if client.config.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+client.config.AccessToken)
	}
	if callCtx != nil {
		if reqID := callCtx.RequestID(); reqID != nil {
			req.Header.Set("X-Request-ID", reqID.String())
		}
	}

	startTime := time.Now()
	resp, err := client.httpClient.Do(req)
	if err != nil {
		log.WithContext(callCtx).Warn().Err(err).
			Str("path", path).Msg("Request failed")
		return nil, GatewayError{Err: err}
	}
	log.WithContext(callCtx).Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("Request done")
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (body *cancelOnClose) Close() error {
	err := body.ReadCloser.Close()
	body.cancel()
	return err
}

func readErrorResponse(resp *http.Response) errorResponse {
	var errResp errorResponse
	data, err := io.ReadAll(io.LimitReader(resp.Body, errorResponseSizeMax))
	if err != nil || len(data) == 0 {
		return errResp
	}
	_ = json.Unmarshal(data, &errResp)
	return errResp
}

// errorFromCode maps the error codes which mean the same regardless of
// the endpoint. It returns nil for the others.
func errorFromCode(errResp errorResponse) error {
	var inner error
	if errResp.ErrorDescription != "" {
		inner = errors.New(errResp.ErrorDescription)
	}
	switch errResp.Error {
	case errorCodeClockSkewDetected:
		return iam.ErrClockSkewDetected
	case errorCodeInvalidPhoneNumber:
		return InvalidPhoneNumberError{Err: inner}
	case errorCodePhoneNumberRegionNotSupported:
		return PhoneNumberRegionNotSupportedError{Err: inner}
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	errResp := readErrorResponse(resp)
	if err := errorFromCode(errResp); err != nil {
		return err
	}

	apiErr := APIError{
		StatusCode:  resp.StatusCode,
		Code:        errResp.Error,
		Description: errResp.ErrorDescription,
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrResendThrottled
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return ConfigurationError{Err: apiErr}
	case resp.StatusCode >= 500:
		return GatewayError{Err: apiErr}
	}
	return apiErr
}
