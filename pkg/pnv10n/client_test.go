package pnv10n

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadisoka/iam-verify/pkg/iam"
	"github.com/kadisoka/iam-verify/pkg/v10nflow"
)

type fakeResponse struct {
	status int
	entity interface{}
}

// fakeIdentityServer serves the user phone-number endpoints.
type fakeIdentityServer struct {
	mu             sync.Mutex
	putResponse    fakeResponse
	putRequests    []phoneNumberPutRequest
	confirmResp    fakeResponse
	confirmations  []verificationConfirmationPostRequest
	lastHeader     http.Header
	requestsServed int
}

func (srv *fakeIdentityServer) webService() *restful.WebService {
	ws := new(restful.WebService)
	ws.
		Path("/rest/v1/users").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)
	ws.Route(ws.PUT("/me/phone_number").To(srv.putUserPhoneNumber))
	ws.Route(ws.POST("/me/phone_number/verification_confirmation").
		To(srv.postVerificationConfirmation))
	return ws
}

func (srv *fakeIdentityServer) putUserPhoneNumber(
	req *restful.Request, resp *restful.Response,
) {
	var reqEntity phoneNumberPutRequest
	if err := req.ReadEntity(&reqEntity); err != nil {
		resp.WriteHeader(http.StatusBadRequest)
		return
	}
	srv.mu.Lock()
	srv.putRequests = append(srv.putRequests, reqEntity)
	srv.lastHeader = req.Request.Header.Clone()
	srv.requestsServed++
	res := srv.putResponse
	srv.mu.Unlock()
	writeFakeResponse(resp, res)
}

func (srv *fakeIdentityServer) postVerificationConfirmation(
	req *restful.Request, resp *restful.Response,
) {
	var reqEntity verificationConfirmationPostRequest
	if err := req.ReadEntity(&reqEntity); err != nil {
		resp.WriteHeader(http.StatusBadRequest)
		return
	}
	srv.mu.Lock()
	srv.confirmations = append(srv.confirmations, reqEntity)
	srv.lastHeader = req.Request.Header.Clone()
	srv.requestsServed++
	res := srv.confirmResp
	srv.mu.Unlock()
	writeFakeResponse(resp, res)
}

func writeFakeResponse(resp *restful.Response, res fakeResponse) {
	if res.entity == nil {
		resp.WriteHeader(res.status)
		return
	}
	resp.WriteHeaderAndEntity(res.status, res.entity)
}

func (srv *fakeIdentityServer) setPutResponse(res fakeResponse) {
	srv.mu.Lock()
	srv.putResponse = res
	srv.mu.Unlock()
}

func (srv *fakeIdentityServer) setConfirmResponse(res fakeResponse) {
	srv.mu.Lock()
	srv.confirmResp = res
	srv.mu.Unlock()
}

func (srv *fakeIdentityServer) served() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.requestsServed
}

var testCodeExpiry = time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC)

func newTestClient(t *testing.T) (*Client, *fakeIdentityServer) {
	t.Helper()

	srv := &fakeIdentityServer{
		putResponse: fakeResponse{http.StatusAccepted, phoneNumberPutResponse{
			VerificationID: 42,
			CodeExpiry:     testCodeExpiry,
		}},
		confirmResp: fakeResponse{status: http.StatusOK},
	}
	container := restful.NewContainer()
	container.Add(srv.webService())
	httpSrv := httptest.NewServer(container)
	t.Cleanup(httpSrv.Close)

	cfg := ConfigSkeleton()
	cfg.ServerBaseURL = httpSrv.URL + "/rest/v1/"
	cfg.AccessToken = "user-access-token"
	cfg.PreferredLanguages = "id-ID,en;q=0.8"
	client, err := NewClient(cfg, httpSrv.Client())
	require.Nil(t, err)
	return client, srv
}

func TestNewClientConfig(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.NotNil(t, err)
	var cfgErr ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = NewClient(Config{ServerBaseURL: "ftp://example.com"}, nil)
	assert.NotNil(t, err, "not an HTTP URL")

	_, err = NewClient(Config{
		ServerBaseURL:      "https://example.com",
		PreferredLanguages: "en;q=x",
	}, nil)
	assert.NotNil(t, err, "malformed languages")

	client, err := NewClient(Config{ServerBaseURL: "https://example.com"}, nil)
	require.Nil(t, err)
	assert.Equal(t, "en-US", client.acceptLanguage)
}

func TestRequestCode(t *testing.T) {
	client, srv := newTestClient(t)

	callCtx := iam.NewCallContext(context.Background(), uuid.New(), "RequestNewCode")
	token := &iam.ChallengeToken{Provider: "recaptcha", Value: "opaque-token"}
	verification, err := client.RequestCode(callCtx, "+62 812-345-678",
		[]VerificationMethod{VerificationMethodSMS, VerificationMethodUnspecified}, token)
	require.Nil(t, err)
	assert.True(t, verification.IsPending())
	assert.Equal(t, int64(42), verification.ID)
	require.NotNil(t, verification.CodeExpiry)
	assert.True(t, testCodeExpiry.Equal(*verification.CodeExpiry))
	assert.Equal(t, verification, client.Verification())

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Equal(t, 1, len(srv.putRequests))
	putReq := srv.putRequests[0]
	assert.Equal(t, "+62812345678", putReq.PhoneNumber)
	assert.Equal(t, []string{"sms"}, putReq.VerificationMethods)
	require.NotNil(t, putReq.ChallengeToken)
	assert.Equal(t, "recaptcha", putReq.ChallengeToken.Provider)
	assert.Equal(t, "opaque-token", putReq.ChallengeToken.Value)

	assert.Equal(t, "Bearer user-access-token", srv.lastHeader.Get("Authorization"))
	assert.Equal(t, "id-ID, en", srv.lastHeader.Get("Accept-Language"))
	assert.Equal(t, callCtx.RequestID().String(), srv.lastHeader.Get("X-Request-ID"))
	assert.Contains(t, srv.lastHeader.Get("User-Agent"), "Kadisoka-IAM-Verify/1.0")
}

func TestRequestCodeNotNeeded(t *testing.T) {
	client, srv := newTestClient(t)
	srv.setPutResponse(fakeResponse{status: http.StatusNoContent})

	verification, err := client.RequestCode(context.Background(), "+62812345678", nil, nil)
	require.Nil(t, err)
	assert.False(t, verification.IsPending())

	err = client.SubmitCode(context.Background(), v10nflow.SubmitRequest{Code: "123456"})
	assert.Equal(t, ErrNoVerification, err)
}

func TestRequestCodeInvalidSubject(t *testing.T) {
	client, srv := newTestClient(t)

	for _, subject := range []string{"", "not a number", "+6212"} {
		_, err := client.RequestCode(context.Background(), subject, nil, nil)
		var phoneErr InvalidPhoneNumberError
		assert.True(t, errors.As(err, &phoneErr), "subject %q", subject)
	}
	assert.Equal(t, 0, srv.served())
}

func TestRequestCodeTestNumber(t *testing.T) {
	client, srv := newTestClient(t)

	verification, err := client.RequestCode(context.Background(), "+15550100", nil, nil)
	require.Nil(t, err)
	assert.True(t, verification.IsPending())

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Equal(t, 1, len(srv.putRequests))
	assert.Equal(t, "+15550100", srv.putRequests[0].PhoneNumber)
}

func TestRequestNewCodeErrors(t *testing.T) {
	testCases := []struct {
		res   fakeResponse
		check func(err error) bool
	}{
		{fakeResponse{status: http.StatusTooManyRequests},
			func(err error) bool { return err == ErrResendThrottled }},
		{fakeResponse{http.StatusBadRequest, errorResponse{Error: "invalid_phone_number"}},
			func(err error) bool { var e InvalidPhoneNumberError; return errors.As(err, &e) }},
		{fakeResponse{http.StatusBadRequest, errorResponse{
			Error: "phone_number_region_not_supported", ErrorDescription: "region 62"}},
			func(err error) bool {
				var e PhoneNumberRegionNotSupportedError
				return errors.As(err, &e) && e.Error() == "phone number region not supported: region 62"
			}},
		{fakeResponse{http.StatusUnauthorized, errorResponse{Error: "invalid_token"}},
			func(err error) bool { var e ConfigurationError; return errors.As(err, &e) }},
		{fakeResponse{status: http.StatusBadGateway},
			func(err error) bool { var e GatewayError; return errors.As(err, &e) }},
		{fakeResponse{http.StatusConflict, errorResponse{Error: "conflict", ErrorDescription: "taken"}},
			func(err error) bool {
				var e APIError
				return errors.As(err, &e) && e.Error() == "status 409 conflict: taken"
			}},
	}

	for _, testCase := range testCases {
		client, srv := newTestClient(t)
		srv.setPutResponse(testCase.res)
		err := client.RequestNewCode(context.Background(), "+62812345678", nil)
		assert.True(t, testCase.check(err), "status %d: %v", testCase.res.status, err)
		assert.Equal(t, iam.ErrorKindGeneric, iam.ClassifyError(err))
	}
}

func TestSubmitCode(t *testing.T) {
	client, srv := newTestClient(t)

	err := client.SubmitCode(context.Background(), v10nflow.SubmitRequest{Code: "123456"})
	assert.Equal(t, ErrNoVerification, err, "nothing requested yet")
	assert.Equal(t, 0, srv.served())

	require.Nil(t, client.RequestNewCode(context.Background(), "+62812345678", nil))
	err = client.SubmitCode(context.Background(), v10nflow.SubmitRequest{
		Subject: "+62812345678",
		Code:    "123456",
	})
	require.Nil(t, err)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Equal(t, 1, len(srv.confirmations))
	assert.Equal(t, int64(42), srv.confirmations[0].VerificationID)
	assert.Equal(t, "123456", srv.confirmations[0].Code)
}

func TestSubmitCodeErrors(t *testing.T) {
	testCases := []struct {
		res  fakeResponse
		kind iam.ErrorKind
		want error
	}{
		{fakeResponse{status: http.StatusBadRequest}, iam.ErrorKindInvalidCode, iam.ErrVerificationCodeMismatch},
		{fakeResponse{status: http.StatusGone}, iam.ErrorKindInvalidCode, iam.ErrVerificationCodeExpired},
		{fakeResponse{http.StatusBadRequest, errorResponse{Error: "clock_skew_detected"}},
			iam.ErrorKindClockSkew, iam.ErrClockSkewDetected},
		{fakeResponse{status: http.StatusServiceUnavailable}, iam.ErrorKindGeneric, nil},
	}

	for _, testCase := range testCases {
		client, srv := newTestClient(t)
		require.Nil(t, client.RequestNewCode(context.Background(), "+62812345678", nil))
		srv.setConfirmResponse(testCase.res)

		err := client.SubmitCode(context.Background(), v10nflow.SubmitRequest{Code: "123456"})
		require.NotNil(t, err)
		if testCase.want != nil {
			assert.Equal(t, testCase.want, err)
		} else {
			var e GatewayError
			assert.True(t, errors.As(err, &e))
		}
		assert.Equal(t, testCase.kind, iam.ClassifyError(err), "status %d", testCase.res.status)
	}
}

func TestRequestCancelled(t *testing.T) {
	client, _ := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := client.RequestNewCode(ctx, "+62812345678", nil)
	var gwErr GatewayError
	assert.True(t, errors.As(err, &gwErr))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestVerificationMethodFromString(t *testing.T) {
	assert.Equal(t, VerificationMethodSMS, VerificationMethodFromString("sms"))
	assert.Equal(t, VerificationMethodNone, VerificationMethodFromString("none"))
	assert.Equal(t, VerificationMethodUnspecified, VerificationMethodFromString("voice"))
	assert.Equal(t, "sms", VerificationMethodSMS.String())
	assert.Equal(t, "", VerificationMethodUnspecified.String())
}

func TestVerificationReference(t *testing.T) {
	assert.Equal(t, "", Verification{}.Reference())
	ref := Verification{ID: 42}.Reference()
	assert.Equal(t, "pv-", ref[:3])
	assert.NotEqual(t, ref, Verification{ID: 43}.Reference())
}
