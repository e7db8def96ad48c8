package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskboard-go/internal/client"
	"taskboard-go/internal/config"
	"taskboard-go/internal/model"
	"taskboard-go/internal/session"
)

var errLoginRequired = errors.New("login required: run 'taskboard login --email <email>'")

// sessionEnv is everything a session command needs, with the persisted
// session already restored.
type sessionEnv struct {
	cfg      *config.Config
	store    session.Store
	mgr      *session.Manager
	guard    *session.Guard
	auth     *client.AuthClient
	api      *client.APIClient
	redirect string
}

func openSession(ctx context.Context, g *config.CLI, o *output) (*sessionEnv, error) {
	cfg, err := config.Load(g)
	if err != nil {
		return nil, err
	}
	logger := buildLogger(cfg, o.err)
	cfg.WarnPermissions(logger)

	store, err := session.OpenStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	env := &sessionEnv{cfg: cfg, store: store, auth: client.NewAuthClient(cfg, logger)}
	env.mgr = session.NewManager(store, env.auth, session.Options{
		TokenKey:   cfg.Session.TokenKey,
		UserKey:    cfg.Session.UserKey,
		LoginRoute: config.LoginRoute,
		Navigator: func(route string) {
			env.redirect = route
			logger.Debug("navigate", "route", route)
		},
	}, logger)

	if err := env.mgr.Restore(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	env.guard = session.NewGuard(env.mgr)
	env.api = client.NewAPIClient(cfg, env.mgr, logger)
	return env, nil
}

func (e *sessionEnv) Close() error {
	return e.store.Close()
}

// withSession runs fn with a restored session and closes the store afterwards.
func withSession(g *config.CLI, o *output, fn func(ctx context.Context, env *sessionEnv) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := openSession(ctx, g, o)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	return fn(ctx, env)
}

// activate asks the guard for route; a denial becomes errLoginRequired.
func (e *sessionEnv) activate(route string) error {
	if !e.guard.CanActivate(route) {
		return fmt.Errorf("%s denied, redirected to %s: %w", route, e.redirect, errLoginRequired)
	}
	return nil
}

type loginCmd struct {
	Email    string `required:"" help:"Account email."`
	Password string `required:"" env:"TASKBOARD_PASSWORD" help:"Account password."`
}

func (c *loginCmd) Run(g *config.CLI, o *output) error {
	return withSession(g, o, func(ctx context.Context, env *sessionEnv) error {
		resp, err := env.mgr.Login(ctx, model.Credentials{Email: c.Email, Password: c.Password})
		if err != nil {
			if client.IsLoginKind(err, client.LoginInvalidCredentials) {
				return fmt.Errorf("login failed: invalid email or password")
			}
			return err
		}
		_, _ = fmt.Fprintf(o.out, "logged in as %s\n", describeUser(resp.User))
		return nil
	})
}

type registerCmd struct {
	Name     string `required:"" help:"Display name."`
	Email    string `required:"" help:"Account email."`
	Password string `required:"" env:"TASKBOARD_NEW_PASSWORD" help:"Password for the new account."`
}

func (c *registerCmd) Run(g *config.CLI, o *output) error {
	return withSession(g, o, func(ctx context.Context, env *sessionEnv) error {
		return register(ctx, o, env, model.Registration{Name: c.Name, Email: c.Email, Password: c.Password})
	})
}

// register signs up a new account. The current session is left as it is.
func register(ctx context.Context, o *output, env *sessionEnv, reg model.Registration) error {
	resp, err := env.auth.Register(ctx, reg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(o.out, "registered %s\n", describeUser(resp.User))
	return nil
}

type logoutCmd struct{}

func (logoutCmd) Run(g *config.CLI, o *output) error {
	return withSession(g, o, func(ctx context.Context, env *sessionEnv) error {
		if err := env.mgr.Logout(ctx); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(o.out, "logged out")
		return nil
	})
}

type whoamiCmd struct{}

func (whoamiCmd) Run(g *config.CLI, o *output) error {
	return withSession(g, o, func(_ context.Context, env *sessionEnv) error {
		if !env.mgr.IsAuthenticated() {
			_, _ = fmt.Fprintln(o.out, "not logged in")
			return nil
		}
		_, _ = fmt.Fprintln(o.out, describeUser(env.mgr.CurrentUser()))
		return nil
	})
}

type pingCmd struct{}

func (pingCmd) Run(g *config.CLI, o *output) error {
	return withSession(g, o, func(ctx context.Context, env *sessionEnv) error {
		data, err := env.api.Health(ctx)
		if err != nil {
			return fmt.Errorf("backend unhealthy: %w", err)
		}
		return printJSON(o, data)
	})
}

func describeUser(u *model.User) string {
	if u == nil {
		return "<unknown>"
	}
	if u.Name == "" {
		return u.Email
	}
	return fmt.Sprintf("%s <%s> (id %s)", u.Name, u.Email, u.ID)
}

type listCmd struct {
	Resource string `arg:"" enum:"projects,stories,tasks,users" help:"One of: projects, stories, tasks, users."`
}

func (c *listCmd) Run(g *config.CLI, o *output) error {
	return withSession(g, o, func(ctx context.Context, env *sessionEnv) error {
		if err := env.activate("/" + c.Resource); err != nil {
			return err
		}
		return printList(ctx, o.out, env.api, client.Resource(c.Resource))
	})
}

type getCmd struct {
	Resource string `arg:"" enum:"projects,stories,tasks,users" help:"One of: projects, stories, tasks, users."`
	ID       string `arg:"" help:"Record id."`
}

func (c *getCmd) Run(g *config.CLI, o *output) error {
	return withSession(g, o, func(ctx context.Context, env *sessionEnv) error {
		if err := env.activate("/" + c.Resource + "/" + c.ID); err != nil {
			return err
		}
		data, err := env.api.Get(ctx, client.Resource(c.Resource), c.ID)
		if err != nil {
			return err
		}
		return printJSON(o, data)
	})
}

type createCmd struct {
	Resource string `arg:"" enum:"projects,stories,tasks,users" help:"One of: projects, stories, tasks, users."`
	Data     string `short:"d" required:"" help:"JSON request body."`
}

func (c *createCmd) Run(g *config.CLI, o *output) error {
	body, err := parseBody(c.Data)
	if err != nil {
		return err
	}
	return withSession(g, o, func(ctx context.Context, env *sessionEnv) error {
		if err := env.activate("/" + c.Resource + "/new"); err != nil {
			return err
		}
		// New users go through the sign-up endpoint, not the users collection.
		if client.Resource(c.Resource) == client.Users {
			var reg model.Registration
			if err := json.Unmarshal(body, &reg); err != nil {
				return fmt.Errorf("--data is not a user registration: %w", err)
			}
			return register(ctx, o, env, reg)
		}
		data, err := env.api.Create(ctx, client.Resource(c.Resource), body)
		if err != nil {
			return err
		}
		return printJSON(o, data)
	})
}

type updateCmd struct {
	Resource string `arg:"" enum:"projects,stories,tasks,users" help:"One of: projects, stories, tasks, users."`
	ID       string `arg:"" help:"Record id."`
	Data     string `short:"d" required:"" help:"JSON request body."`
}

func (c *updateCmd) Run(g *config.CLI, o *output) error {
	body, err := parseBody(c.Data)
	if err != nil {
		return err
	}
	return withSession(g, o, func(ctx context.Context, env *sessionEnv) error {
		if err := env.activate("/" + c.Resource + "/" + c.ID + "/edit"); err != nil {
			return err
		}
		data, err := env.api.Update(ctx, client.Resource(c.Resource), c.ID, body)
		if err != nil {
			return err
		}
		return printJSON(o, data)
	})
}

type deleteCmd struct {
	Resource string `arg:"" enum:"projects,stories,tasks,users" help:"One of: projects, stories, tasks, users."`
	ID       string `arg:"" help:"Record id."`
}

func (c *deleteCmd) Run(g *config.CLI, o *output) error {
	return withSession(g, o, func(ctx context.Context, env *sessionEnv) error {
		if err := env.activate("/" + c.Resource + "/" + c.ID); err != nil {
			return err
		}
		if err := env.api.Delete(ctx, client.Resource(c.Resource), c.ID); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(o.out, "deleted %s %s\n", c.Resource, c.ID)
		return nil
	})
}

func parseBody(data string) (json.RawMessage, error) {
	if !json.Valid([]byte(data)) {
		return nil, fmt.Errorf("--data is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func printJSON(o *output, data json.RawMessage) error {
	if len(data) == 0 {
		_, _ = fmt.Fprintln(o.out, "ok")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		_, err = o.out.Write(append(data, '\n'))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(o.out)
	return err
}
