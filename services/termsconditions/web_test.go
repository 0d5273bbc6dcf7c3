package termsconditions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/sheetmusicshop/lib/mypublisher"
)

func TestTermsConditions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// setup
	publisher := mypublisher.NewMockPublisher(ctrl)
	publisher.EXPECT().CreateTopic(gomock.Any(), TopicName).Return(nil)
	router := mux.NewRouter()
	err := NewService(publisher).RegisterEndpoints(context.TODO(), router)
	require.NoError(t, err)

	// when
	request, _ := http.NewRequest(http.MethodGet, "/api/termsconditions", nil)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)

	// then
	assert.Equal(t, 200, response.Code)
	terms := TermsConditions{}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &terms))
	assert.Equal(t, CurrentVersion, terms.Version)
	assert.Contains(t, terms.Text, "제1조")
}
