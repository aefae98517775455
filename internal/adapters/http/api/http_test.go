package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/crux/internal/adapters/http/api"
	"github.com/okian/crux/internal/app"
	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type wireLandmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

type wireFrame struct {
	Index       int                          `json:"index"`
	TimestampMS float64                      `json:"timestamp_ms"`
	Landmarks   map[model.Joint]wireLandmark `json:"landmarks"`
}

func bodyFrame(idx int) wireFrame {
	lm := func(x, y float64) wireLandmark {
		return wireLandmark{X: x, Y: y, Confidence: 0.9}
	}
	return wireFrame{
		Index:       idx,
		TimestampMS: float64(idx) * 33,
		Landmarks: map[model.Joint]wireLandmark{
			model.JointLeftShoulder:  lm(0.45, 0.40),
			model.JointRightShoulder: lm(0.55, 0.40),
			model.JointLeftElbow:     lm(0.40, 0.50),
			model.JointRightElbow:    lm(0.60, 0.50),
			model.JointLeftWrist:     lm(0.38, 0.32),
			model.JointRightWrist:    lm(0.62, 0.32),
			model.JointLeftHip:       lm(0.46, 0.60),
			model.JointRightHip:      lm(0.54, 0.60),
			model.JointLeftAnkle:     lm(0.43, 0.90),
			model.JointRightAnkle:    lm(0.57, 0.90),
		},
	}
}

func newTestServer(ctx context.Context) (*httptest.Server, *app.Service) {
	svc := app.New(
		app.WithLogger(logger.Nop()),
		app.WithWorkerCount(1),
		app.WithQueueSize(8),
	)
	So(svc.Start(ctx), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, api.WithLogger(logger.Nop())).Register(ctx, mux)
	return httptest.NewServer(mux), svc
}

func doJSON(t *httptest.Server, method, path string, body any) (*http.Response, map[string]json.RawMessage) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req, err := http.NewRequest(method, t.URL+path, &buf)
	if err != nil {
		panic(err)
	}
	resp, err := t.Client().Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var decoded map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func field(raw map[string]json.RawMessage, key string) string {
	var s string
	_ = json.Unmarshal(raw[key], &s)
	return s
}

func TestSessionRoutes(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ts, svc := newTestServer(ctx)
		defer ts.Close()
		defer svc.Stop(context.Background())

		Convey("The health endpoint answers", func() {
			resp, body := doJSON(ts, http.MethodGet, "/healthz", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(field(body, "status"), ShouldEqual, "ok")
		})

		Convey("A session can be opened", func() {
			resp, body := doJSON(ts, http.MethodPost, "/v1/sessions", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			id := field(body, "session_id")
			So(id, ShouldNotBeEmpty)

			Convey("Frames stream in batches, malformed ones are counted not fatal", func() {
				frames := []wireFrame{bodyFrame(1), bodyFrame(2), bodyFrame(2), bodyFrame(3)}
				resp, body := doJSON(ts, http.MethodPost,
					"/v1/sessions/"+id+"/frames", map[string]any{"frames": frames})
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var accepted, dropped int
				So(json.Unmarshal(body["accepted"], &accepted), ShouldBeNil)
				So(json.Unmarshal(body["dropped"], &dropped), ShouldBeNil)
				So(accepted, ShouldEqual, 3)
				So(dropped, ShouldEqual, 1)
			})

			Convey("The report is not ready while the session streams", func() {
				resp, _ := doJSON(ts, http.MethodGet, "/v1/sessions/"+id+"/report", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})

			Convey("Completing with frames yields a report", func() {
				var frames []wireFrame
				for i := 1; i <= 40; i++ {
					frames = append(frames, bodyFrame(i))
				}
				resp, _ := doJSON(ts, http.MethodPost,
					"/v1/sessions/"+id+"/frames", map[string]any{"frames": frames})
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				resp, body := doJSON(ts, http.MethodPost, "/v1/sessions/"+id+"/complete", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(field(body, "status"), ShouldEqual, "analyzing")

				status := 0
				deadline := time.Now().Add(3 * time.Second)
				var report map[string]json.RawMessage
				for time.Now().Before(deadline) {
					resp, report = doJSON(ts, http.MethodGet, "/v1/sessions/"+id+"/report", nil)
					status = resp.StatusCode
					if status == http.StatusOK {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(status, ShouldEqual, http.StatusOK)
				So(field(report, "session_id"), ShouldEqual, id)
				So(report, ShouldContainKey, "profile")
				So(report, ShouldContainKey, "swot")
			})

			Convey("Completing an empty session is rejected", func() {
				resp, _ := doJSON(ts, http.MethodPost, "/v1/sessions/"+id+"/complete", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
			})

			Convey("Abandoning removes the session", func() {
				resp, _ := doJSON(ts, http.MethodDelete, "/v1/sessions/"+id, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				resp, _ = doJSON(ts, http.MethodDelete, "/v1/sessions/"+id, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("Bad identifiers and unknown sessions map to client errors", func() {
			resp, _ := doJSON(ts, http.MethodPost, "/v1/sessions/not-a-uuid/complete", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			unknown := fmt.Sprintf("/v1/sessions/%s/report", "00000000-0000-0000-0000-000000000001")
			resp, _ = doJSON(ts, http.MethodGet, unknown, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("An empty frame batch is a bad request", func() {
			resp, body := doJSON(ts, http.MethodPost, "/v1/sessions", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			id := field(body, "session_id")

			resp, _ = doJSON(ts, http.MethodPost,
				"/v1/sessions/"+id+"/frames", map[string]any{"frames": []wireFrame{}})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}
