package swagger_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/crux/internal/adapters/http/swagger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegister(t *testing.T) {
	Convey("Given the documentation routes", t, func() {
		mux := http.NewServeMux()
		swagger.Register(context.Background(), mux)
		ts := httptest.NewServer(mux)
		defer ts.Close()

		Convey("The spec is served as YAML", func() {
			resp, err := http.Get(ts.URL + "/openapi.yaml")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Content-Type"), ShouldStartWith, "application/yaml")
		})

		Convey("The docs page references the spec", func() {
			resp, err := http.Get(ts.URL + "/api-docs")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			page, err := io.ReadAll(resp.Body)
			So(err, ShouldBeNil)
			So(string(page), ShouldContainSubstring, "/openapi.yaml")
		})
	})
}
