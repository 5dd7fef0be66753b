package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStat struct{ acquired, idle, total int32 }

func (s fakeStat) AcquiredConns() int32 { return s.acquired }
func (s fakeStat) IdleConns() int32     { return s.idle }
func (s fakeStat) TotalConns() int32    { return s.total }

func TestUpdateDBPoolMetrics(t *testing.T) {
	UpdateDBPoolMetrics(fakeStat{acquired: 3, idle: 2, total: 5})

	if got := testutil.ToFloat64(DBPoolConnsAcquired); got != 3 {
		t.Errorf("acquired = %v, want 3", got)
	}
	if got := testutil.ToFloat64(DBPoolConnsIdle); got != 2 {
		t.Errorf("idle = %v, want 2", got)
	}
	if got := testutil.ToFloat64(DBPoolConnsOpen); got != 5 {
		t.Errorf("open = %v, want 5", got)
	}
}

func TestUpdateDBPoolMetrics_IgnoresUnknownType(t *testing.T) {
	UpdateDBPoolMetrics(fakeStat{acquired: 1, idle: 1, total: 2})
	UpdateDBPoolMetrics("not a pool stat")

	if got := testutil.ToFloat64(DBPoolConnsOpen); got != 2 {
		t.Errorf("open = %v, want 2 (unchanged)", got)
	}
}

func TestMiddleware_CountsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/v1/tables/:table/pois", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/tables/:table/pois", "200"))

	for _, table := range []string{"poi", "stops"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/v1/tables/"+table+"/pois", nil))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/tables/:table/pois", "200"))
	if after-before != 2 {
		t.Errorf("requests counted = %v, want 2 under the route pattern", after-before)
	}
}

func TestHandler_ExposesGeometryMetrics(t *testing.T) {
	EnsureRuns.WithLabelValues("created").Inc()

	app := fiber.New()
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `poigeo_geometry_ensure_runs_total{outcome="created"}`) {
		t.Error("metrics output missing ensure runs counter")
	}
}
