package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialmetrics/domain/core"
	"trialmetrics/domain/trial"
	"trialmetrics/internal"
	"trialmetrics/internal/config"
	"trialmetrics/internal/errors"
)

const studyJSON = `{
  "protocolSection": {
    "identificationModule": {"nctId": "NCT01234567", "briefTitle": "Study of Drug X in Type 2 Diabetes"},
    "statusModule": {
      "overallStatus": "RECRUITING",
      "startDateStruct": {"date": "2024-03"},
      "primaryCompletionDateStruct": {"date": "2026-12-31"}
    },
    "sponsorCollaboratorsModule": {"leadSponsor": {"name": "Acme Pharma"}},
    "conditionsModule": {"conditions": ["Type 2 Diabetes", "Obesity"]},
    "designModule": {
      "phases": ["PHASE2", "PHASE3"],
      "enrollmentInfo": {"count": 240, "type": "ESTIMATED"}
    },
    "armsInterventionsModule": {"interventions": [{"name": "Drug X"}, {"name": "Placebo"}]},
    "contactsLocationsModule": {"locations": [{"facility": "A"}, {"facility": "B"}, {"facility": "C"}]}
  }
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.RegistryConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second, PageSize: 20},
		internal.NewLogger(internal.LogLevelError))
}

func TestParseStudy(t *testing.T) {
	s := ParseStudy([]byte(studyJSON))

	assert.Equal(t, "NCT01234567", s.NCTID)
	assert.Equal(t, "Study of Drug X in Type 2 Diabetes", s.Title)
	assert.Equal(t, "PHASE2,PHASE3", s.Phase)
	assert.Equal(t, trial.StatusRecruiting, s.Status)
	assert.Equal(t, 240, s.EnrollmentTarget)
	assert.Equal(t, trial.EnrollmentEstimated, s.EnrollmentType)
	assert.Equal(t, "2024-03", s.StartDate)
	assert.Equal(t, "2026-12-31", s.CompletionDate)
	assert.Equal(t, "Acme Pharma", s.Sponsor)
	assert.Equal(t, []string{"Type 2 Diabetes", "Obesity"}, s.Conditions)
	assert.Equal(t, []string{"Drug X", "Placebo"}, s.Interventions)
	assert.Equal(t, 3, s.SitesCount)
}

func TestParseStudyMissingFields(t *testing.T) {
	s := ParseStudy([]byte(`{"protocolSection": {"identificationModule": {"nctId": "NCT00000001"}}}`))

	assert.Equal(t, "NCT00000001", s.NCTID)
	assert.Equal(t, "N/A", s.Phase)
	assert.Equal(t, 0, s.EnrollmentTarget)
	assert.Equal(t, 0, s.SitesCount)
	assert.Empty(t, s.Conditions)
	assert.Empty(t, s.StartDate)
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "diabetes", q.Get("query.cond"))
		assert.Equal(t, "RECRUITING", q.Get("filter.overallStatus"))
		assert.Equal(t, "5", q.Get("pageSize"))
		assert.Contains(t, q.Get("fields"), "EnrollmentCount")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalCount": 42, "nextPageToken": "abc", "studies": [` + studyJSON + `]}`))
	})

	res, err := client.Search(context.Background(), "diabetes", trial.StatusRecruiting, 5)
	require.NoError(t, err)
	assert.Equal(t, 42, res.TotalCount)
	assert.Equal(t, "abc", res.NextPageToken)
	require.Len(t, res.Trials, 1)
	assert.Equal(t, "NCT01234567", res.Trials[0].NCTID)
}

func TestSearchDefaultsAndValidation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("pageSize"))
		assert.False(t, r.URL.Query().Has("filter.overallStatus"))
		_, _ = w.Write([]byte(`{"studies": []}`))
	})

	res, err := client.Search(context.Background(), "asthma", "", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Trials)

	_, err = client.Search(context.Background(), "  ", "", 0)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestGet(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/NCT01234567", r.URL.Path)
		_, _ = w.Write([]byte(studyJSON))
	})

	s, err := client.Get(context.Background(), " nct01234567 ")
	require.NoError(t, err)
	assert.Equal(t, "NCT01234567", s.NCTID)
}

func TestGetRejectsBadID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Get(context.Background(), "12345678")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidNCTID)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestGetErrors(t *testing.T) {
	notFound := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := notFound.Get(context.Background(), "NCT09999999")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	assert.True(t, core.IsNotFoundError(err))

	failing := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})
	_, err = failing.Get(context.Background(), "NCT01234567")
	require.Error(t, err)
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
	assert.Contains(t, err.Error(), "http 502")

	garbage := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	_, err = garbage.Get(context.Background(), "NCT01234567")
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
}
