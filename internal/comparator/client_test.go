package comparator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"pdfcheck/internal"
	"pdfcheck/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.Config {
	cfg, _ := config.Load()
	cfg.OpenAIAPIKey = "test"
	cfg.OpenAIBaseURL = "https://example.test/v1"
	cfg.CompareRateRPS = 1000
	cfg.CompareRetries = 3
	return cfg
}

func chatResponse(content string) *http.Response {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	blob, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(string(blob))),
		Header:     make(http.Header),
	}
}

func testRecord() internal.MasterRecord {
	return internal.MasterRecord{
		PatientID: "101",
		Fields:    map[string]string{"Patient ID": "101", "Insurance": "BCBS"},
	}
}

func TestCompareParsesVerdict(t *testing.T) {
	client := NewClient(testConfig(), nil)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/v1/chat/completions" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test" {
				t.Fatalf("auth header %q", got)
			}
			return chatResponse(`{"discrepancies":[{"field":"Insurance","master_value":"BCBS","document_value":"Aetna","explanation":"different insurance company"}]}`), nil
		}),
	}

	verdict, err := client.Compare(context.Background(), "Patient ID: 101\nInsurance: Aetna", testRecord())
	if err != nil {
		t.Fatal(err)
	}
	if len(verdict.Discrepancies) != 1 || verdict.Discrepancies[0].Field != "Insurance" {
		t.Fatalf("verdict=%+v", verdict)
	}
}

func TestCompareEmptyVerdict(t *testing.T) {
	client := NewClient(testConfig(), nil)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return chatResponse(`{"discrepancies":[]}`), nil
		}),
	}

	verdict, err := client.Compare(context.Background(), "Patient ID: 101", testRecord())
	if err != nil {
		t.Fatal(err)
	}
	if len(verdict.Discrepancies) != 0 {
		t.Fatalf("verdict=%+v", verdict)
	}
}

func TestCompareMalformedIsNotClean(t *testing.T) {
	contents := []string{
		"No discrepancies found, everything looks fine.",
		`{"verdict":"clean"}`,
		`{"discrepancies":[{"master_value":"BCBS"}]}`,
	}
	for _, content := range contents {
		client := NewClient(testConfig(), nil)
		client.httpClient = &http.Client{
			Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
				return chatResponse(content), nil
			}),
		}
		_, err := client.Compare(context.Background(), "Patient ID: 101", testRecord())
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("content %q: err=%v", content, err)
		}
	}
}

func TestCompareServiceError(t *testing.T) {
	client := NewClient(testConfig(), nil)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusBadRequest,
				Body:       io.NopCloser(strings.NewReader(`{"error":"bad request"}`)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	_, err := client.Compare(context.Background(), "Patient ID: 101", testRecord())
	if !errors.Is(err, ErrService) {
		t.Fatalf("err=%v", err)
	}
}

func TestCompareTimeoutIsServiceError(t *testing.T) {
	client := NewClient(testConfig(), nil)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			<-r.Context().Done()
			return nil, r.Context().Err()
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Compare(ctx, "Patient ID: 101", testRecord())
	if !errors.Is(err, ErrService) {
		t.Fatalf("err=%v", err)
	}
	// An expired deadline is not retried.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("elapsed=%v", elapsed)
	}
}

func TestCompareRetriesOnServerError(t *testing.T) {
	attempt := 0
	client := NewClient(testConfig(), nil)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusInternalServerError,
					Body:       io.NopCloser(strings.NewReader(`{"error":"boom"}`)),
					Header:     make(http.Header),
				}, nil
			}
			return chatResponse(`{"discrepancies":[]}`), nil
		}),
	}

	verdict, err := client.Compare(context.Background(), "Patient ID: 101", testRecord())
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
	if len(verdict.Discrepancies) != 0 {
		t.Fatalf("verdict=%+v", verdict)
	}
}
