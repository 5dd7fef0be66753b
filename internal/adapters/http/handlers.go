package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

const (
	formatJSON    = "json"
	formatGeoJSON = "geojson"

	mimeGeoJSON = "application/geo+json"
)

// PoisHandler returns the records of a table inside a bounding box.
//
//	GET /v1/tables/:table/pois?bbox=minLng,minLat,maxLng,maxLat&types=cafe,museum&format=json
func PoisHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bbox := c.Query("bbox")
		if bbox == "" {
			return errBadRequest(c, "bbox query parameter is required")
		}
		format := c.Query("format", formatJSON)
		if format != formatJSON && format != formatGeoJSON {
			return errBadRequest(c, "format must be json or geojson")
		}
		offset, limit := pageParams(c)

		records, err := deps.Geometry.Query(c.UserContext(), c.Params("table"), bbox, c.Query("types"))
		if err != nil {
			return writeServiceError(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: len(records)}
		page := paginate(records, offset, limit)
		SetLinkHeaders(c, pg)
		c.Set("X-Total-Count", strconv.Itoa(pg.Total))

		if format == formatGeoJSON {
			return c.JSON(domain.NewFeatureCollection(page, deps.Geometry.Spec()), mimeGeoJSON)
		}
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// NearbyPoisHandler returns records within a radius of a point, nearest first.
//
//	GET /v1/tables/:table/pois/nearby?lat=47.37&lon=8.54&radius=500&types=cafe&limit=50
func NearbyPoisHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return errBadRequest(c, "lat is required and must be a number")
		}
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			return errBadRequest(c, "lon is required and must be a number")
		}
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 50)

		records, err := deps.Geometry.Nearby(c.UserContext(), c.Params("table"), lat, lon, radius, c.Query("types"), limit)
		if err != nil {
			return writeServiceError(c, err)
		}
		if records == nil {
			records = []domain.Record{}
		}

		if c.Query("format") == formatGeoJSON {
			return c.JSON(domain.NewFeatureCollection(records, deps.Geometry.Spec()), mimeGeoJSON)
		}
		return c.JSON(records)
	}
}

// EnsureGeometryHandler makes sure the geometry column exists. With
// ?async=true the request is queued and 202 is returned immediately.
//
//	POST /v1/tables/:table/geometry
func EnsureGeometryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		table := c.Params("table")

		if c.QueryBool("async", false) {
			req, err := deps.Geometry.RequestEnsure(c.UserContext(), table)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(req)
		}

		res, err := deps.Geometry.Ensure(c.UserContext(), table)
		if err != nil {
			return writeServiceError(c, err)
		}
		status := fiber.StatusOK
		if res.Created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(res)
	}
}

// MaterializeHandler copies a table into a new table with a geometry column.
// target defaults to <table>_geo.
//
//	POST /v1/tables/:table/materialize?target=poi_geo
func MaterializeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := deps.Geometry.Materialize(c.UserContext(), c.Params("table"), c.Query("target"))
		if err != nil {
			return writeServiceError(c, err)
		}
		status := fiber.StatusOK
		if res.Created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(res)
	}
}
