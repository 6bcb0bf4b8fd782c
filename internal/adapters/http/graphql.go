package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	pointSetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PointSet",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"slug":        &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"origin":      &graphql.Field{Type: graphql.String},
			"point_count": &graphql.Field{Type: graphql.Int},
		},
	})

	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"label":    &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
			"position": &graphql.Field{Type: graphql.Int},
		},
	})

	pairingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Pairing",
		Fields: graphql.Fields{
			"index_a":  &graphql.Field{Type: graphql.Int},
			"index_b":  &graphql.Field{Type: graphql.Int},
			"label_a":  &graphql.Field{Type: graphql.String},
			"label_b":  &graphql.Field{Type: graphql.String},
			"score_km": &graphql.Field{Type: graphql.Float},
			"midpoint": &graphql.Field{Type: geoPointType},
		},
	})

	// pair_count is a Float because cross products overflow 32-bit Int.
	matchRunType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MatchRun",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"set_a_slug":  &graphql.Field{Type: graphql.String},
			"set_b_slug":  &graphql.Field{Type: graphql.String},
			"target":      &graphql.Field{Type: geoPointType},
			"top_n":       &graphql.Field{Type: graphql.Int},
			"pair_count":  &graphql.Field{Type: graphql.Float},
			"pairings":    &graphql.Field{Type: graphql.NewList(pairingType)},
			"viewport":    &graphql.Field{Type: boundsType},
			"trigger":     &graphql.Field{Type: graphql.String},
			"duration_ms": &graphql.Field{Type: graphql.Int},
		},
	})

	venueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Venue",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"category": &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
			"address":  &graphql.Field{Type: graphql.String},
			"rating":   &graphql.Field{Type: graphql.Float},
			"source":   &graphql.Field{Type: graphql.String},
			"distance": &graphql.Field{Type: graphql.Float},
		},
	})

	estimateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MatchEstimate",
		Fields: graphql.Fields{
			"set_a_slug": &graphql.Field{Type: graphql.String},
			"set_b_slug": &graphql.Field{Type: graphql.String},
			"pair_count": &graphql.Field{Type: graphql.Float},
			"sync":       &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"pointSets": &graphql.Field{
				Type:        graphql.NewList(pointSetType),
				Description: "List stored point sets, newest first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					offset := p.Args["offset"].(int)
					sets, _, err := deps.PointSets.List(p.Context, limit, offset)
					return sets, err
				},
			},
			"pointSet": &graphql.Field{
				Type: graphql.NewObject(graphql.ObjectConfig{
					Name: "PointSetDetail",
					Fields: graphql.Fields{
						"set":    &graphql.Field{Type: pointSetType},
						"points": &graphql.Field{Type: graphql.NewList(pointType)},
					},
				}),
				Description: "Get a point set with its points",
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					slug := p.Args["slug"].(string)
					set, points, err := deps.PointSets.Get(p.Context, slug)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"set": set, "points": points}, nil
				},
			},
			"bestMatches": &graphql.Field{
				Type:        matchRunType,
				Description: "Rank every pairing of two sets against a target location",
				Args: graphql.FieldConfigArgument{
					"set_a":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"set_b":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"target_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"target_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"top_n":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					target := domain.GeoPoint{
						Lat: p.Args["target_lat"].(float64),
						Lon: p.Args["target_lon"].(float64),
					}
					return deps.Matches.BestBetweenSets(p.Context,
						p.Args["set_a"].(string), p.Args["set_b"].(string),
						target, p.Args["top_n"].(int), domain.TriggerAPI)
				},
			},
			"estimate": &graphql.Field{
				Type:        estimateType,
				Description: "Preview the pair count for two sets",
				Args: graphql.FieldConfigArgument{
					"set_a": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"set_b": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Matches.Estimate(p.Context,
						p.Args["set_a"].(string), p.Args["set_b"].(string))
				},
			},
			"venuesNearby": &graphql.Field{
				Type:        graphql.NewList(venueType),
				Description: "Find curated venues near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Venues.Nearby(p.Context, lat, lon, radius, limit)
				},
			},
			"recentRuns": &graphql.Field{
				Type:        graphql.NewList(matchRunType),
				Description: "Latest match runs without pairings",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Matches.RecentRuns(p.Context, p.Args["limit"].(int))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
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
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
