package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/blackjack/internal/config"
	"github.com/hitoshi/blackjack/internal/database"
	"github.com/hitoshi/blackjack/internal/deckapi"
	"github.com/hitoshi/blackjack/internal/events"
	"github.com/hitoshi/blackjack/internal/game"
	"github.com/hitoshi/blackjack/internal/hand"
	"github.com/hitoshi/blackjack/internal/handler"
	"github.com/hitoshi/blackjack/internal/logger"
	"github.com/hitoshi/blackjack/internal/metrics"
	"github.com/hitoshi/blackjack/internal/middleware"
	"github.com/hitoshi/blackjack/internal/repository"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ErrSchemaSync は起動時のスキーマ同期に失敗したことを表す。
// 呼び出し元はSchemaFailureBannerを出力して終了コード1で終了する。
var ErrSchemaSync = errors.New("database schema synchronization failed")

// SchemaFailureBanner はスキーマ同期失敗時に出力する固定メッセージ。
const SchemaFailureBanner = "=================================\n" +
	"Database unable to be initialized. Now exiting...\n" +
	"================================="

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定する（Loadで検証済み）
	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.SetupDefault(w, level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		return runHealthcheck(healthcheckURL(os.Getenv("LISTEN_ADDR"), os.Getenv("SERVER_PORT")))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("listen_addr", cfg.ListenAddr),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	}
}

// PrintSchemaFailureBanner はスキーマ同期失敗の固定メッセージを出力する。
func PrintSchemaFailureBanner(w io.Writer) {
	fmt.Fprintln(w, SchemaFailureBanner)
}

// components はAPIサーバーの依存関係をまとめたもの。
type components struct {
	db          *sql.DB
	router      http.Handler
	rateLimiter *middleware.RateLimiter
	natsConn    *nats.Conn
}

// Close は保持しているリソースを解放する。
func (c *components) Close() {
	if c.rateLimiter != nil {
		c.rateLimiter.Stop()
	}
	if c.natsConn != nil {
		if err := c.natsConn.Drain(); err != nil {
			c.natsConn.Close()
		}
	}
	if c.db != nil {
		c.db.Close()
	}
}

// buildComponents はスキーマを同期し、全依存関係をワイヤリングする。
// スキーマ同期に失敗した場合はErrSchemaSyncをラップしたエラーを返す。
func buildComponents(cfg *config.Config, log *slog.Logger) (*components, error) {
	// 1. スキーマ同期（リクエストを受け付ける前に完了させる）
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaSync, err)
	}

	// 2. DB接続
	db, dialect, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaSync, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to connect to database: %w", ErrSchemaSync, err)
	}

	log.Info("database connection established", slog.String("dialect", string(dialect)))

	c := &components{db: db}

	// 3. リポジトリの初期化
	var repo repository.HandRepository
	switch dialect {
	case database.DialectSQLite:
		repo = repository.NewSQLiteHandRepo(db)
	default:
		repo = repository.NewPostgresHandRepo(db)
	}

	// 4. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 5. ハンド通知（NATS_URL設定時のみ）
	var publisher game.Publisher
	if cfg.NATSURL != "" {
		conn, err := events.Connect(cfg.NATSURL, cfg.NATSToken)
		if err != nil {
			// 接続できない場合は通知なしで起動する
			log.Warn("NATSに接続できません。ハンドの通知は無効です",
				slog.String("error", err.Error()),
			)
		} else {
			c.natsConn = conn
			publisher = events.NewNATSPublisher(conn, cfg.NATSSubject)
			log.Info("hand events enabled", slog.String("subject", cfg.NATSSubject))
		}
	}

	// 6. ドメインサービスの初期化
	deckClient := deckapi.NewClient(&http.Client{Timeout: cfg.CardAPITimeout}, log, cfg.CardAPIBaseURL)
	handService := hand.NewService(repo)
	playService := game.NewService(deckClient, handService, publisher, collector, log, cfg.DeckCount)

	// 7. ルーターの構築
	c.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral))
	c.router = handler.NewRouter(&handler.RouterDeps{
		Logger:         log,
		RateLimiter:    c.rateLimiter,
		HealthChecker:  db,
		PlayService:    playService,
		MetricsHandler: metrics.Handler(reg),
	})

	return c, nil
}

// runServe はAPIサーバーモードで起動する。
// スキーマ同期後にHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	c, err := buildComponents(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer c.Close()

	addr := net.JoinHostPort(cfg.ListenAddr, cfg.ServerPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return serve(ctx, newServer(c.router), ln)
}

// newServer はタイムアウト設定済みのhttp.Serverを生成する。
func newServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// serve はlnでリクエストを受け付け、ctxがキャンセルされるまでブロックする。
func serve(ctx context.Context, server *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaSync, err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// healthcheckURL はヘルスチェック先のURLを組み立てる。
// 待ち受けアドレスが未指定または全インターフェースの場合はループバックを使う。
func healthcheckURL(listenAddr, port string) string {
	if listenAddr == "" || listenAddr == "0.0.0.0" || listenAddr == "::" {
		listenAddr = "127.0.0.1"
	}
	if port == "" {
		port = "8080"
	}
	return "http://" + net.JoinHostPort(listenAddr, port) + "/health"
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
