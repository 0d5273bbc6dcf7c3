package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/MarcGrol/sheetmusicshop/lib/mycontext"
	"github.com/MarcGrol/sheetmusicshop/lib/mypublisher"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityapi"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityevents"
)

const password = "piano123!"

func validSignUp() url.Values {
	return url.Values{
		"email":           {"Hong@Example.com"},
		"name":            {"홍길동"},
		"phone":           {"010-1234-5678"},
		"password":        {password},
		"passwordConfirm": {password},
		"agreedToTerms":   {"true"},
		"agreedToPrivacy": {"true"},
	}
}

func existingMember(t *testing.T, email string, active bool) Member {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return Member{Email: email, Name: "홍길동", Phone: "010-1234-5678", PasswordHash: hash, Active: active, CreatedAt: mytime.ExampleTime}
}

func TestIdentityService(t *testing.T) {

	t.Run("Sign up", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, members, _, nower, publisher := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		publisher.EXPECT().Publish(gomock.Any(), identityevents.TopicName, identityevents.MemberSignedUp{Email: "hong@example.com", Name: "홍길동"}).Return(nil)

		// when
		response := doRequest(router, http.MethodPost, "/api/signup", validSignUp())

		// then
		assert.Equal(t, 201, response.Code)
		assert.NotContains(t, response.Body.String(), "PasswordHash")
		member, found, err := members.Get(c, "hong@example.com")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.True(t, member.Active)
		assert.NoError(t, bcrypt.CompareHashAndPassword(member.PasswordHash, []byte(password)))
	})

	t.Run("Sign up with weak password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _, _ := setup(t, ctrl)

		// given
		form := validSignUp()
		form.Set("password", "pianopiano")
		form.Set("passwordConfirm", "pianopiano")

		// when
		response := doRequest(router, http.MethodPost, "/api/signup", form)

		// then
		assert.Equal(t, 422, response.Code)
		assert.Equal(t, "password-too-weak", errorCodeOf(t, response))
	})

	t.Run("Sign up twice", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, members, _, nower, _ := setup(t, ctrl)

		// given
		members.Put(c, "hong@example.com", existingMember(t, "hong@example.com", true))
		nower.EXPECT().Now().Return(mytime.ExampleTime)

		// when
		response := doRequest(router, http.MethodPost, "/api/signup", validSignUp())

		// then
		assert.Equal(t, 409, response.Code)
		assert.Equal(t, "email-taken", errorCodeOf(t, response))
	})

	t.Run("Sign in as member", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, members, _, nower, publisher := setup(t, ctrl)

		// given
		members.Put(c, "hong@example.com", existingMember(t, "hong@example.com", true))
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		publisher.EXPECT().Publish(gomock.Any(), identityevents.TopicName, identityevents.MemberSignedIn{Email: "hong@example.com", SessionUID: "session-1"}).Return(nil)

		// when
		response := doRequest(router, http.MethodPost, "/api/session/member", url.Values{"email": {"hong@example.com"}, "password": {password}})

		// then
		assert.Equal(t, 200, response.Code)
		assert.Equal(t, identityapi.ModeMember, currentOf(t, router).Mode)
		member, _, _ := members.Get(c, "hong@example.com")
		assert.NotNil(t, member.LastLogin)
	})

	t.Run("Sign in as admin", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, members, _, nower, publisher := setup(t, ctrl)

		// given
		members.Put(c, "admin@example.com", existingMember(t, "admin@example.com", true))
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		publisher.EXPECT().Publish(gomock.Any(), identityevents.TopicName, identityevents.MemberSignedIn{Email: "admin@example.com", SessionUID: "session-1", Admin: true}).Return(nil)

		// when
		response := doRequest(router, http.MethodPost, "/api/session/member", url.Values{"email": {"Admin@example.com"}, "password": {password}})

		// then
		assert.Equal(t, 200, response.Code)
		current := currentOf(t, router)
		assert.True(t, current.IsAdmin())
		assert.Equal(t, "admin@example.com", current.Email)
	})

	t.Run("Sign in with wrong password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, members, _, _, _ := setup(t, ctrl)

		// given
		members.Put(c, "hong@example.com", existingMember(t, "hong@example.com", true))

		// when
		response := doRequest(router, http.MethodPost, "/api/session/member", url.Values{"email": {"hong@example.com"}, "password": {"wrong123!"}})

		// then
		assert.Equal(t, 403, response.Code)
		assert.Equal(t, "wrong-password", errorCodeOf(t, response))
		assert.Equal(t, identityapi.ModeGuest, currentOf(t, router).Mode)
	})

	t.Run("Sign in on inactive account", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, members, _, _, _ := setup(t, ctrl)

		// given
		members.Put(c, "hong@example.com", existingMember(t, "hong@example.com", false))

		// when
		response := doRequest(router, http.MethodPost, "/api/session/member", url.Values{"email": {"hong@example.com"}, "password": {password}})

		// then
		assert.Equal(t, 403, response.Code)
		assert.Equal(t, "inactive", errorCodeOf(t, response))
	})

	t.Run("Continue as guest and sign out", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, _, sessions, nower, _ := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)

		// when
		response := doRequest(router, http.MethodPost, "/api/session/guest", nil)

		// then
		assert.Equal(t, 200, response.Code)
		_, found, _ := sessions.Get(c, "session-1")
		assert.True(t, found)

		// when
		response = doRequest(router, http.MethodDelete, "/api/session", nil)

		// then
		assert.Equal(t, 200, response.Code)
		_, found, _ = sessions.Get(c, "session-1")
		assert.False(t, found)
	})

	t.Run("Admin deactivates member", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, router, members, sessions, _, _ := setup(t, ctrl)

		// given
		sessions.Put(c, "session-1", SessionIdentity{SessionUID: "session-1", Mode: identityapi.ModeAdmin, Email: "admin@example.com"})
		members.Put(c, "hong@example.com", existingMember(t, "hong@example.com", true))

		// when
		response := doRequest(router, http.MethodPut, "/api/admin/members/hong@example.com/active/false", nil)

		// then
		assert.Equal(t, 200, response.Code)
		member, _, _ := members.Get(c, "hong@example.com")
		assert.False(t, member.Active)
	})

	t.Run("Member list requires admin", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _, _ := setup(t, ctrl)

		// when
		response := doRequest(router, http.MethodGet, "/api/admin/members", nil)

		// then
		assert.Equal(t, 403, response.Code)
	})
}

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, isStrongPassword("piano123!"))
	assert.False(t, isStrongPassword("piano1234"))
	assert.False(t, isStrongPassword("Piano123!"))
	assert.False(t, isStrongPassword("!!!!1111"))
	assert.False(t, isStrongPassword("피아노piano1!"))
}

func currentOf(t *testing.T, router *mux.Router) identityapi.Identity {
	response := doRequest(router, http.MethodGet, "/api/session", nil)
	require.Equal(t, 200, response.Code)
	identity := identityapi.Identity{}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &identity))
	return identity
}

func errorCodeOf(t *testing.T, response *httptest.ResponseRecorder) string {
	resp := struct{ Code string }{}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
	return resp.Code
}

func doRequest(router *mux.Router, method string, path string, form url.Values) *httptest.ResponseRecorder {
	var request *http.Request
	if form != nil {
		request, _ = http.NewRequest(method, path, strings.NewReader(form.Encode()))
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		request, _ = http.NewRequest(method, path, nil)
	}
	request.Host = "localhost:8888"
	request.AddCookie(&http.Cookie{Name: mycontext.SessionCookieName, Value: "session-1"})
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, mystore.Store[Member], mystore.Store[SessionIdentity], *mytime.MockNower, *mypublisher.MockPublisher) {
	c := context.TODO()
	members, _, _ := mystore.NewInMemoryStore[Member](c)
	sessions, _, _ := mystore.NewInMemoryStore[SessionIdentity](c)
	nower := mytime.NewMockNower(ctrl)
	publisher := mypublisher.NewMockPublisher(ctrl)
	publisher.EXPECT().CreateTopic(gomock.Any(), identityevents.TopicName).Return(nil).AnyTimes()

	router := mux.NewRouter()
	sut := NewWebService(members, sessions, []string{"admin@example.com"}, nower, publisher)
	err := sut.RegisterEndpoints(c, router)
	require.NoError(t, err)

	return c, router, members, sessions, nower, publisher
}
