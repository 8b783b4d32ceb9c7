package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"reading_room/internal/adapters/library"
	redisad "reading_room/internal/adapters/redis"
	"reading_room/internal/adapters/tokenfile"
	"reading_room/internal/app"
	"reading_room/internal/domain"
	"reading_room/internal/shared"
)

// cli carries the flags and the admin state shared by every subcommand.
type cli struct {
	cfg shared.Config

	booksURL   string
	reviewsURL string
	adminURL   string
	tokenFile  string
	redisAddr  string

	store *tokenfile.Store
	gate  *app.AdminGate
	admin *app.AdminService
	close func()
}

// newRootCmd builds the command tree. The returned func releases what the command
// opened and must run after Execute, whether it failed or not.
func newRootCmd() (*cobra.Command, func()) {
	cfg := shared.Load()
	c := &cli{cfg: cfg, close: func() {}}

	root := &cobra.Command{
		Use:           "libadmin",
		Short:         "Moderate the reading room catalog and reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Context())
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&c.booksURL, "books-url", cfg.BooksURL, "book catalog service URL")
	f.StringVar(&c.reviewsURL, "reviews-url", cfg.ReviewsURL, "review service URL")
	f.StringVar(&c.adminURL, "admin-url", cfg.AdminURL, "admin service URL")
	f.StringVar(&c.tokenFile, "token-file", "", "admin token file (default <config dir>/reading_room/admin_token)")
	f.StringVar(&c.redisAddr, "redis-addr", "", "gateway redis to evict cached books from after deletes")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.statusCmd(),
		c.reviewsCmd(),
		c.booksCmd(),
		c.approveCmd(),
		c.deleteCmd("delete-review", "Delete a review", domain.ItemReview),
		c.deleteCmd("delete-book", "Delete a book", domain.ItemBook),
	)
	return root, func() { c.close() }
}

func (c *cli) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path := c.tokenFile
	if path == "" {
		p, err := tokenfile.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	c.store = tokenfile.New(path)

	client, err := library.New(library.Options{
		BooksURL:   c.booksURL,
		ReviewsURL: c.reviewsURL,
		AdminURL:   c.adminURL,
		RPS:        c.cfg.OutboundRPS,
		MaxRetries: c.cfg.OutboundRetry,
	})
	if err != nil {
		return err
	}

	var cache domain.Cache
	if c.redisAddr != "" {
		rc := redisad.New(c.redisAddr, c.cfg.RedisPass, c.cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", c.redisAddr).Msg("redis unavailable; cached books will expire on their own")
			_ = rc.Close()
		} else {
			cache = rc
			c.close = func() { _ = rc.Close() }
		}
	}

	c.gate = app.NewAdminGate(client, c.store)
	if err := c.gate.Restore(ctx); err != nil {
		return err
	}
	c.admin = app.NewAdminService(c.gate, client, client, cache)
	return nil
}

func (c *cli) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange the admin password for a token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("LIBADMIN_PASSWORD")
			}
			if err := c.gate.Login(cmd.Context(), password); err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in; token saved to %s\n", c.store.Path())
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password (default $LIBADMIN_PASSWORD)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored admin token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.gate.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an admin token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.gate.State())
			return nil
		},
	}
}

func (c *cli) reviewsCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "List every review with its moderation status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.admin.Dashboard(cmd.Context())
			if err != nil {
				return explain(err)
			}
			var rs []domain.Review
			for _, r := range d.Reviews {
				if status == "" || string(r.Status) == status {
					rs = append(rs, r)
				}
			}
			return printReviews(cmd.OutOrStdout(), rs)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show reviews in this status (pending, approved, rejected)")
	return cmd
}

func (c *cli) booksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List every book in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.admin.Dashboard(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return printBooks(cmd.OutOrStdout(), d.Books)
		},
	}
}

func (c *cli) approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.admin.ApproveReview(cmd.Context(), id); err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "review %d approved\n", id)
			return nil
		},
	}
}

func (c *cli) deleteCmd(use, short string, kind domain.ItemKind) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if kind == domain.ItemBook {
				err = c.admin.DeleteBook(cmd.Context(), id)
			} else {
				err = c.admin.DeleteReview(cmd.Context(), id)
			}
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d deleted\n", kind, id)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// explain turns auth failures into a hint to log in again.
func explain(err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return errors.New("not logged in; run `libadmin login` first")
	case errors.Is(err, domain.ErrUnauthorized):
		return fmt.Errorf("admin service rejected the credentials; run `libadmin login` again: %w", err)
	case errors.As(err, &verr):
		msgs := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			msgs = append(msgs, f.Message)
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}

func printReviews(w io.Writer, rs []domain.Review) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTYPE\tBOOK\tAUTHOR\tRATING\tCREATED")
	for _, r := range rs {
		book := "-"
		if r.BookTitle != nil {
			book = *r.BookTitle
		} else if r.BookID != nil {
			book = strconv.FormatInt(*r.BookID, 10)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Status, r.Type, book, r.AuthorName, r.Rating, r.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

func printBooks(w io.Writer, bs []domain.Book) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tGENRE\tYEAR")
	for _, b := range bs {
		year := "-"
		if b.Year != nil {
			year = strconv.Itoa(*b.Year)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Author, b.Genre, year)
	}
	return tw.Flush()
}
