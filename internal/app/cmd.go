package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitoshi/isofit/internal/config"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は孤立メディアのクリーンアップワーカーを起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandBootstrapAdmin は管理者ユーザーを作成することを示す。
	CommandBootstrapAdmin Command = "bootstrap-admin"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// NewRootCommand はisofitのルートコマンドを生成する。
// サブコマンドを省略した場合はserveとして起動する。
// wはログの出力先。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "isofit",
		Short:         "isofit - アイソメトリック運動と血圧記録のAPIサーバー",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(w, CommandServe, runServe)
		},
	}

	root.AddCommand(
		newConfiguredCommand(w, CommandServe, "APIサーバーを起動する", runServe),
		newConfiguredCommand(w, CommandWorker, "孤立メディアのクリーンアップを定期実行する", runWorker),
		newConfiguredCommand(w, CommandMigrate, "未適用のマイグレーションをすべて適用する", runMigrate),
		newBootstrapAdminCommand(w),
		newHealthcheckCommand(),
	)
	return root
}

func newConfiguredCommand(w io.Writer, name Command, short string, run func(*config.Config) error) *cobra.Command {
	return &cobra.Command{
		Use:   string(name),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(w, name, run)
		},
	}
}

func newBootstrapAdminCommand(w io.Writer) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   string(CommandBootstrapAdmin),
		Short: "管理者ユーザーを作成する（既に存在する場合は何もしない）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(w, CommandBootstrapAdmin, func(cfg *config.Config) error {
				if email != "" {
					cfg.AdminEmail = email
				}
				if password != "" {
					cfg.AdminPassword = password
				}
				return runBootstrapAdmin(cmd.Context(), cfg)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "管理者のメールアドレス（未指定時はADMIN_EMAIL）")
	cmd.Flags().StringVar(&password, "password", "", "管理者のパスワード（未指定時はADMIN_PASSWORD）")
	return cmd
}

// newHealthcheckCommand は軽量サブコマンドのため設定の読み込みを行わない。
func newHealthcheckCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "稼働中のAPIサーバーの /health を確認する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(port)
		},
	}

	defaultPort := os.Getenv("SERVER_PORT")
	if defaultPort == "" {
		defaultPort = "8080"
	}
	cmd.Flags().StringVar(&port, "port", defaultPort, "APIサーバーのポート")
	return cmd
}

// withConfig はログと設定を初期化してからrunを実行する。
func withConfig(w io.Writer, name Command, run func(*config.Config) error) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	logStartup(name, cfg)
	return run(cfg)
}
