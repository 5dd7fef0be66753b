package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// jsonScalar passes arbitrary JSON values through untouched. Records have no
// fixed shape, so they are exposed as JSON rather than as an object type.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value",
	Serialize:   func(v interface{}) interface{} { return v },
	ParseValue:  func(v interface{}) interface{} { return v },
	ParseLiteral: func(v ast.Value) interface{} {
		if v == nil {
			return nil
		}
		return v.GetValue()
	},
})

// buildSchema creates the GraphQL schema wired to the geometry service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	ensureResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "EnsureResult",
		Fields: graphql.Fields{
			"table":           &graphql.Field{Type: graphql.String},
			"column":          &graphql.Field{Type: graphql.String},
			"created":         &graphql.Field{Type: graphql.Boolean},
			"rows_backfilled": &graphql.Field{Type: graphql.Int},
			"index_name":      &graphql.Field{Type: graphql.String},
		},
	})

	materializeResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MaterializeResult",
		Fields: graphql.Fields{
			"source":     &graphql.Field{Type: graphql.String},
			"target":     &graphql.Field{Type: graphql.String},
			"created":    &graphql.Field{Type: graphql.Boolean},
			"rows":       &graphql.Field{Type: graphql.Int},
			"index_name": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"pois": &graphql.Field{
				Type:        graphql.NewList(jsonScalar),
				Description: "Records of a table inside a bounding box",
				Args: graphql.FieldConfigArgument{
					"table": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"bbox":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"types": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "all"},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					table := p.Args["table"].(string)
					bbox := p.Args["bbox"].(string)
					types, _ := p.Args["types"].(string)
					return deps.Geometry.Query(p.Context, table, bbox, types)
				},
			},
			"poisNearby": &graphql.Field{
				Type:        graphql.NewList(jsonScalar),
				Description: "Records within radius meters of a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"table":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"types":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "all"},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					table := p.Args["table"].(string)
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					types, _ := p.Args["types"].(string)
					limit := p.Args["limit"].(int)
					return deps.Geometry.Nearby(p.Context, table, lat, lon, radius, types, limit)
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"ensureGeometry": &graphql.Field{
				Type:        ensureResultType,
				Description: "Add, back-fill and index the geometry column if missing",
				Args: graphql.FieldConfigArgument{
					"table": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					res, err := deps.Geometry.Ensure(p.Context, p.Args["table"].(string))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"table":           res.Table,
						"column":          res.Column,
						"created":         res.Created,
						"rows_backfilled": res.RowsBackfilled,
						"index_name":      res.IndexName,
					}, nil
				},
			},
			"materializeGeometry": &graphql.Field{
				Type:        materializeResultType,
				Description: "Copy a table into a new table with a geometry column",
				Args: graphql.FieldConfigArgument{
					"source": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"target": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					target, _ := p.Args["target"].(string)
					res, err := deps.Geometry.Materialize(p.Context, p.Args["source"].(string), target)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"source":     res.Source,
						"target":     res.Target,
						"created":    res.Created,
						"rows":       res.Rows,
						"index_name": res.IndexName,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
