// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Reppit Contributors

// Package graph exposes the auth operations over GraphQL.
package graph

import (
	"github.com/graphql-go/graphql"
	"github.com/samber/oops"

	"github.com/reppit/reppit/internal/auth"
	"github.com/reppit/reppit/internal/observability"
)

// Operation outcomes recorded in metrics.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// resolver binds the schema's fields to the auth service.
type resolver struct {
	svc     *auth.Service
	metrics *observability.Metrics
}

func (r *resolver) record(operation, outcome string) {
	if r.metrics != nil {
		r.metrics.AuthOperationsTotal.WithLabelValues(operation, outcome).Inc()
	}
}

// NewSchema builds the GraphQL schema for the auth surface: the me query
// and the register, login, logout, forgotPassword, and changePassword
// mutations. metrics may be nil.
func NewSchema(svc *auth.Service, metrics *observability.Metrics) (graphql.Schema, error) {
	if svc == nil {
		return graphql.Schema{}, oops.Errorf("auth service is required")
	}
	r := &resolver{svc: svc, metrics: metrics}

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"username":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"email":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
			"updatedAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		},
	})

	fieldErrorType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FieldError",
		Fields: graphql.Fields{
			"field":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"message": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	userResponseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "UserResponse",
		Fields: graphql.Fields{
			"errors": &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(fieldErrorType))},
			"user":   &graphql.Field{Type: userType},
		},
	})

	registerInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UsernamePasswordInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"username": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"email":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"password": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type:    userType,
				Resolve: r.resolveMe,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"register": &graphql.Field{
				Type: graphql.NewNonNull(userResponseType),
				Args: graphql.FieldConfigArgument{
					"options": &graphql.ArgumentConfig{Type: graphql.NewNonNull(registerInputType)},
				},
				Resolve: r.resolveRegister,
			},
			"login": &graphql.Field{
				Type: graphql.NewNonNull(userResponseType),
				Args: graphql.FieldConfigArgument{
					"usernameOrEmail": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveLogin,
			},
			"logout": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Boolean),
				Resolve: r.resolveLogout,
			},
			"forgotPassword": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"email": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveForgotPassword,
			},
			"changePassword": &graphql.Field{
				Type: graphql.NewNonNull(userResponseType),
				Args: graphql.FieldConfigArgument{
					"token":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"newPassword": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveChangePassword,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
	if err != nil {
		return graphql.Schema{}, oops.Code("GRAPH_SCHEMA_FAILED").Wrap(err)
	}
	return schema, nil
}

func (r *resolver) resolveMe(p graphql.ResolveParams) (any, error) {
	sess, ok := SessionFrom(p.Context)
	if !ok {
		return nil, oops.Code("GRAPH_NO_SESSION").Errorf("request context carries no session")
	}

	user, err := r.svc.Me(p.Context, sess)
	if err != nil {
		r.record("me", outcomeError)
		return nil, err
	}
	r.record("me", outcomeOK)
	if user == nil {
		return nil, nil
	}
	return userPayload(user), nil
}

func (r *resolver) resolveRegister(p graphql.ResolveParams) (any, error) {
	sess, ok := SessionFrom(p.Context)
	if !ok {
		return nil, oops.Code("GRAPH_NO_SESSION").Errorf("request context carries no session")
	}

	options, _ := p.Args["options"].(map[string]any)
	in := auth.RegisterInput{
		Username: stringArg(options, "username"),
		Email:    stringArg(options, "email"),
		Password: stringArg(options, "password"),
	}

	res, err := r.svc.Register(p.Context, in, sess)
	if err != nil {
		r.record("register", outcomeError)
		return nil, err
	}
	r.record("register", resultOutcome(res))
	return resultPayload(res), nil
}

func (r *resolver) resolveLogin(p graphql.ResolveParams) (any, error) {
	sess, ok := SessionFrom(p.Context)
	if !ok {
		return nil, oops.Code("GRAPH_NO_SESSION").Errorf("request context carries no session")
	}

	res, err := r.svc.Login(p.Context, stringArg(p.Args, "usernameOrEmail"), stringArg(p.Args, "password"), sess)
	if err != nil {
		r.record("login", outcomeError)
		return nil, err
	}
	r.record("login", resultOutcome(res))
	return resultPayload(res), nil
}

func (r *resolver) resolveLogout(p graphql.ResolveParams) (any, error) {
	sess, ok := SessionFrom(p.Context)
	if !ok {
		return nil, oops.Code("GRAPH_NO_SESSION").Errorf("request context carries no session")
	}

	ok = r.svc.Logout(p.Context, sess)
	if ok {
		r.record("logout", outcomeOK)
	} else {
		r.record("logout", outcomeError)
	}
	return ok, nil
}

func (r *resolver) resolveForgotPassword(p graphql.ResolveParams) (any, error) {
	ok, err := r.svc.ForgotPassword(p.Context, stringArg(p.Args, "email"))
	if err != nil {
		r.record("forgotPassword", outcomeError)
		return nil, err
	}
	r.record("forgotPassword", outcomeOK)
	return ok, nil
}

func (r *resolver) resolveChangePassword(p graphql.ResolveParams) (any, error) {
	sess, ok := SessionFrom(p.Context)
	if !ok {
		return nil, oops.Code("GRAPH_NO_SESSION").Errorf("request context carries no session")
	}

	res, err := r.svc.ChangePassword(p.Context, stringArg(p.Args, "token"), stringArg(p.Args, "newPassword"), sess)
	if err != nil {
		r.record("changePassword", outcomeError)
		return nil, err
	}
	r.record("changePassword", resultOutcome(res))
	return resultPayload(res), nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func resultOutcome(res auth.UserResult) string {
	if len(res.Errors) > 0 {
		return outcomeRejected
	}
	return outcomeOK
}

// userPayload shapes a user for the API, leaving the password hash behind.
func userPayload(u *auth.User) map[string]any {
	return map[string]any{
		"id":        u.ID.String(),
		"username":  u.Username,
		"email":     u.Email,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}

func resultPayload(res auth.UserResult) map[string]any {
	payload := map[string]any{}
	if len(res.Errors) > 0 {
		errs := make([]map[string]any, 0, len(res.Errors))
		for _, fe := range res.Errors {
			errs = append(errs, map[string]any{"field": fe.Field, "message": fe.Message})
		}
		payload["errors"] = errs
	}
	if res.User != nil {
		payload["user"] = userPayload(res.User)
	}
	return payload
}
