package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/itslanguage/itslanguage-go/pkg/api"
)

func newTestClient(t *testing.T, handler http.Handler) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := api.New(api.Config{
		BaseURL:     srv.URL,
		AccessToken: "test-token",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNew_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := api.New(api.Config{}); err == nil {
		t.Fatal("expected an error for an empty BaseURL")
	}
}

func TestSignURL(t *testing.T) {
	t.Parallel()

	client, err := api.New(api.Config{BaseURL: "https://api.example", AccessToken: "tok-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain url",
			raw:  "https://cdn.example/audio/42.wav",
			want: "https://cdn.example/audio/42.wav?access_token=tok-1",
		},
		{
			name: "existing query is kept",
			raw:  "https://cdn.example/audio/42.wav?v=2",
			want: "https://cdn.example/audio/42.wav?access_token=tok-1&v=2",
		},
		{
			name: "empty url stays empty",
			raw:  "",
			want: "",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := client.SignURL(tt.raw); got != tt.want {
				t.Errorf("SignURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSignURL_NoToken(t *testing.T) {
	t.Parallel()

	client, err := api.New(api.Config{BaseURL: "https://api.example"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw := "https://cdn.example/audio/42.wav"
	if got := client.SignURL(raw); got != raw {
		t.Errorf("SignURL without a token = %q, want the input unchanged", got)
	}
}

func TestOrganisations_SendsBearerToken(t *testing.T) {
	t.Parallel()

	var gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodGet || r.URL.Path != "/organisations" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"fb","name":"Fblearn"}]`))
	}))

	orgs, err := client.Organisations(context.Background())
	if err != nil {
		t.Fatalf("Organisations: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-token")
	}
	if len(orgs) != 1 || orgs[0].ID != "fb" || orgs[0].Name != "Fblearn" {
		t.Errorf("unexpected organisations: %+v", orgs)
	}
}

func TestCreateStudent_PostsToOrganisationScope(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/organisations/fb/students" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"stu-7","firstName":"Najat","lastName":"Bakker"}`))
	}))

	student, err := client.CreateStudent(context.Background(), "fb", api.Student{
		FirstName: "Najat",
		LastName:  "Bakker",
	})
	if err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	if gotBody["firstName"] != "Najat" || gotBody["lastName"] != "Bakker" {
		t.Errorf("unexpected request body: %v", gotBody)
	}
	if _, ok := gotBody["id"]; ok {
		t.Error("empty student id must not be sent")
	}
	if student.ID != "stu-7" {
		t.Errorf("student.ID = %q, want %q", student.ID, "stu-7")
	}
	if student.OrganisationID != "fb" {
		t.Errorf("student.OrganisationID = %q, want %q", student.OrganisationID, "fb")
	}
}

func TestErrorResponse(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no such challenge"}`))
	}))

	_, err := client.ChoiceChallenge(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is %T, want *api.Error", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, http.StatusNotFound)
	}
	if apiErr.Message != "no such challenge" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "no such challenge")
	}
}

func TestBreakerBacksOffAfterServerErrors(t *testing.T) {
	t.Parallel()

	var hits int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 5; i++ {
		var apiErr *api.Error
		if _, err := client.Organisations(context.Background()); !errors.As(err, &apiErr) {
			t.Fatalf("call %d = %v, want *api.Error", i, err)
		}
	}

	_, err := client.Organisations(context.Background())
	if !errors.Is(err, api.ErrUnavailable) {
		t.Fatalf("call while backing off = %v, want ErrUnavailable", err)
	}
	if hits != 5 {
		t.Errorf("server saw %d requests, want 5", hits)
	}
}

func TestClientErrorsDoNotTripTheBreaker(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for i := 0; i < 10; i++ {
		var apiErr *api.Error
		if _, err := client.Organisation(context.Background(), "missing"); !errors.As(err, &apiErr) {
			t.Fatalf("call %d = %v, want *api.Error", i, err)
		}
	}
}

func TestRecordings_MapsAndSignsAudioURLs(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/challenges/speech/4/recordings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"id": "42",
			"studentId": "stu-7",
			"created": "2026-01-05T10:00:00Z",
			"updated": "2026-01-05T10:00:05Z",
			"audioUrl": "https://cdn.example/audio/42.wav"
		}]`))
	}))

	recordings, err := client.Recordings(context.Background(), "fb", "4")
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(recordings) != 1 {
		t.Fatalf("got %d recordings, want 1", len(recordings))
	}
	rec := recordings[0]
	if rec.ID != "42" {
		t.Errorf("ID = %q, want %q", rec.ID, "42")
	}
	if rec.Student.OrganisationID != "fb" || rec.Student.ID != "stu-7" {
		t.Errorf("unexpected student ref: %+v", rec.Student)
	}
	want := "https://cdn.example/audio/42.wav?access_token=test-token"
	if rec.AudioURL != want {
		t.Errorf("AudioURL = %q, want %q", rec.AudioURL, want)
	}
}

func TestRecognitions_CarryRecognisedValue(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/challenges/choice/9/recognitions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"id": "18",
			"studentId": "stu-9",
			"created": "2026-01-05T10:00:00Z",
			"updated": "2026-01-05T10:00:05Z",
			"audioUrl": "https://cdn.example/audio/18.wav",
			"recognised": "Yes"
		}]`))
	}))

	recognitions, err := client.Recognitions(context.Background(), "fb", "9")
	if err != nil {
		t.Fatalf("Recognitions: %v", err)
	}
	if len(recognitions) != 1 {
		t.Fatalf("got %d recognitions, want 1", len(recognitions))
	}
	if recognitions[0].Recognised != "Yes" {
		t.Errorf("Recognised = %q, want %q", recognitions[0].Recognised, "Yes")
	}
}

func TestRecording_FetchesSingleResult(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/challenges/speech/4/recordings/22" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "22",
			"studentId": "stu-3",
			"created": "2026-02-01T09:00:00Z",
			"updated": "2026-02-01T09:00:04Z",
			"audioUrl": "https://cdn.example/audio/22.wav"
		}`))
	}))

	rec, err := client.Recording(context.Background(), "fb", "4", "22")
	if err != nil {
		t.Fatalf("Recording: %v", err)
	}
	if rec.ID != "22" {
		t.Errorf("ID = %q, want %q", rec.ID, "22")
	}
	if rec.Student.OrganisationID != "fb" || rec.Student.ID != "stu-3" {
		t.Errorf("Student = %+v", rec.Student)
	}
	if got := rec.AudioURL; got != "https://cdn.example/audio/22.wav?access_token=test-token" {
		t.Errorf("AudioURL = %q", got)
	}
}

func TestRecognition_FetchesSingleResult(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/challenges/choice/9/recognitions/18" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "18",
			"studentId": "stu-9",
			"created": "2026-01-05T10:00:00Z",
			"updated": "2026-01-05T10:00:05Z",
			"audioUrl": "https://cdn.example/audio/18.wav",
			"recognised": "No"
		}`))
	}))

	rec, err := client.Recognition(context.Background(), "fb", "9", "18")
	if err != nil {
		t.Fatalf("Recognition: %v", err)
	}
	if rec.Recognised != "No" {
		t.Errorf("Recognised = %q, want %q", rec.Recognised, "No")
	}
}
