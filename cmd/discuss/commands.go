package main

import (
	"discuss/config"
	"discuss/internal/apperr"
	"discuss/internal/discussion"
	"discuss/internal/models"
	"discuss/internal/optimistic"
	"discuss/internal/profile"
	"discuss/internal/remote"
	"discuss/internal/utils"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app 每次命令执行时构建
type app struct {
	client   *remote.Client
	facade   *discussion.Facade
	registry *prometheus.Registry
}

type options struct {
	server  string
	token   string
	timeout time.Duration
	verbose bool
	metrics bool
}

func newRootCmd() *cobra.Command {
	var (
		opts options
		a    *app
	)

	root := &cobra.Command{
		Use:          "discuss",
		Short:        "Read and write comment threads from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env := "prod"
			if opts.verbose {
				env = "dev"
			}
			utils.InitLogger(env)

			// 没有配置文件时用默认值
			if cfg, err := config.Load(); err == nil {
				if !cmd.Flags().Changed("server") {
					opts.server = cfg.APIBaseURL
				}
				if !cmd.Flags().Changed("token") && cfg.APIToken != "" {
					opts.token = cfg.APIToken
				}
				if !cmd.Flags().Changed("timeout") && cfg.APITimeout > 0 {
					opts.timeout = cfg.APITimeout
				}
			}
			a = newApp(opts)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if opts.metrics && a != nil {
				printMetrics(cmd.OutOrStdout(), a.registry)
			}
			_ = zap.L().Sync()
		},
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8080", "API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "bearer token printed by the login command")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "print reaction controller counters after the command")

	get := func() *app { return a }
	root.AddCommand(
		loginCmd(get),
		threadCmd(get),
		commentCmd(get),
		editCmd(get),
		deleteCmd(get),
		reactCmd(get),
		reactorsCmd(get),
	)
	return root
}

func newApp(opts options) *app {
	client := remote.New(opts.server, remote.WithTimeout(opts.timeout), remote.WithToken(opts.token))
	reg := prometheus.NewRegistry()
	f := discussion.New(client, remote.NewTokenViewer(opts.token),
		discussion.WithLogger(zap.L()),
		discussion.WithResolver(profile.NewResolver(client, profile.WithLogger(zap.L()))),
		discussion.WithControllerOptions(optimistic.WithMetrics(optimistic.NewMetrics(reg))),
	)
	return &app{client: client, facade: f, registry: reg}
}

func loginCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Log in and print a token for --token / API_TOKEN",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := get().client.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func threadCmd(get func() *app) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "thread <post-id>",
		Short: "Show a post's comment thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return showThread(cmd, get(), models.PostID(postID), depth)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "maximum reply depth to show, 0 for all")
	return cmd
}

func commentCmd(get func() *app) *cobra.Command {
	var parent uint
	cmd := &cobra.Command{
		Use:   "comment <post-id> <text>",
		Short: "Comment on a post, or reply with --parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID(args[0])
			if err != nil {
				return err
			}
			var parentID *models.CommentID
			if parent != 0 {
				p := models.CommentID(parent)
				parentID = &p
			}
			a := get()
			node, err := a.facade.CreateComment(cmd.Context(), models.PostID(postID), args[1], parentID)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created comment #%d\n", node.ID)
			if err := renderThread(cmd.OutOrStdout(), a.facade, 0); err != nil {
				zap.L().Debug("thread not rendered", zap.Error(err))
			}
			return nil
		},
	}
	cmd.Flags().UintVar(&parent, "parent", 0, "comment id to reply to")
	return cmd
}

func editCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <comment-id> <text>",
		Short: "Replace the content of your comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			node, err := get().facade.EditComment(cmd.Context(), models.CommentID(id), args[1])
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d: %s\n", node.ID, node.Content)
			return nil
		},
	}
}

func deleteCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <comment-id>",
		Short: "Delete your comment and all replies under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := get().facade.DeleteComment(cmd.Context(), models.CommentID(id)); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted comment #%d\n", id)
			return nil
		},
	}
}

func reactCmd(get func() *app) *cobra.Command {
	var post uint
	cmd := &cobra.Command{
		Use:   "react <post|comment> <id> <category>",
		Short: "Toggle a reaction: " + categoryList(),
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := parseEntity(args[0], args[1])
			if err != nil {
				return err
			}
			if entity.Kind == models.EntityPost {
				post = entity.ID
			}
			a := get()
			// 先加载线程，乐观状态从服务端快照出发
			if post != 0 {
				if err := a.facade.LoadThread(cmd.Context(), models.PostID(post)); err != nil {
					return userError(err)
				}
			}
			snap, err := a.facade.React(cmd.Context(), entity, models.ReactionCategory(args[2]))
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(entity.String()+" "+formatReactions(snap)))
			return nil
		},
	}
	cmd.Flags().UintVar(&post, "post", 0, "post the comment belongs to, loads current reactions first")
	return cmd
}

func reactorsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reactors <post-id> <post|comment> <id>",
		Short: "List who reacted to a post or comment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID(args[0])
			if err != nil {
				return err
			}
			entity, err := parseEntity(args[1], args[2])
			if err != nil {
				return err
			}
			a := get()
			if err := a.facade.LoadThread(cmd.Context(), models.PostID(postID)); err != nil {
				return userError(err)
			}
			snap, ok := a.facade.Snapshot(entity)
			if !ok {
				return userError(fmt.Errorf("%s: %w", entity, apperr.ErrNotFound))
			}
			for _, r := range a.facade.Profiles().ResolveReactors(cmd.Context(), snap) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", r.Action.Emoji(), r.Profile.Name)
			}
			return nil
		},
	}
}

func showThread(cmd *cobra.Command, a *app, postID models.PostID, depth int) error {
	if err := a.facade.LoadThread(cmd.Context(), postID); err != nil {
		return userError(err)
	}
	return renderThread(cmd.OutOrStdout(), a.facade, depth)
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func parseEntity(kind, id string) (models.EntityRef, error) {
	k, err := models.ParseEntityKind(kind)
	if err != nil {
		return models.EntityRef{}, err
	}
	n, err := parseID(id)
	if err != nil {
		return models.EntityRef{}, err
	}
	return models.EntityRef{Kind: k, ID: n}, nil
}

// userError 已分类的错误只给用户看友好提示，细节进日志
func userError(err error) error {
	zap.L().Debug("command failed", zap.Error(err))
	if apperr.Expected(err) {
		return fmt.Errorf("%s", apperr.Message(err))
	}
	return err
}
