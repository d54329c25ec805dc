package main

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/questx-lab/gemdrops/config"
	"github.com/questx-lab/gemdrops/internal/domain"
	"github.com/questx-lab/gemdrops/internal/domain/draw"
	"github.com/questx-lab/gemdrops/internal/domain/inventory"
	"github.com/questx-lab/gemdrops/internal/domain/ledger"
	"github.com/questx-lab/gemdrops/internal/domain/vault"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/kafka"
	"github.com/questx-lab/gemdrops/pkg/logger"
	"github.com/questx-lab/gemdrops/pkg/pubsub"
	"github.com/questx-lab/gemdrops/pkg/router"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"github.com/questx-lab/gemdrops/pkg/xredis"
	"github.com/urfave/cli/v2"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type srv struct {
	app *cli.App
	ctx context.Context

	configs *config.Configs

	tokenRepo        repository.TokenRepository
	offeringRepo     repository.OfferingRepository
	cardTemplateRepo repository.CardTemplateRepository
	cardRepo         repository.CardRepository
	purchaseRepo     repository.PurchaseRepository
	drawRecordRepo   repository.DrawRecordRepository
	raffleRepo       repository.RaffleRepository

	ledger     *ledger.Ledger
	catalog    *inventory.Catalog
	vaultStore *vault.Store
	valuator   draw.Valuator
	drawEngine *draw.Engine

	offeringDomain domain.OfferingDomain
	raffleDomain   domain.RaffleDomain
	vaultDomain    domain.VaultDomain
	tokenDomain    domain.TokenDomain

	publisher   pubsub.Publisher
	redisClient xredis.Client

	router *router.Router
	server *http.Server
}

// loadContext prepares the base context shared by every command: configs,
// logger and the snowflake node.
func (s *srv) loadContext() {
	s.loadConfig()

	log, err := logger.NewLogger(s.configs.Log.Level, s.configs.Log.JSON)
	if err != nil {
		panic(err)
	}

	node, err := snowflake.NewNode(s.configs.SnowflakeNode)
	if err != nil {
		panic(err)
	}

	s.ctx = context.Background()
	s.ctx = xcontext.WithConfigs(s.ctx, *s.configs)
	s.ctx = xcontext.WithLogger(s.ctx, log)
	s.ctx = xcontext.WithSnowFlake(s.ctx, node)
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := s.configs.Database

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.New(mysql.Config{
			DSN:                       cfg.ConnectionString(), // data source name
			DefaultStringSize:         256,                    // default size for string fields
			DisableDatetimePrecision:  true,                   // disable datetime precision, which not supported before MySQL 5.6
			DontSupportRenameIndex:    true,                   // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
			DontSupportRenameColumn:   true,                   // `change` when rename column, rename column not supported before MySQL 8, MariaDB
			SkipInitializeWithVersion: false,                  // auto configure based on currently MySQL version
		})
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath + "?_busy_timeout=5000&_journal_mode=WAL")
	default:
		xcontext.Logger(s.ctx).Errorf("Unsupported database driver %s", cfg.Driver)
		panic("unsupported database driver")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.Driver == "sqlite" {
		// Writers are serialized by sqlite anyway.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return db
}

func (s *srv) loadDatabase() {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
}

func (s *srv) loadPublisher() {
	if len(s.configs.Kafka.Addrs) == 0 {
		xcontext.Logger(s.ctx).Warnf("No kafka broker configured, audit events are dropped")
		s.publisher = pubsub.NewNopPublisher()
		return
	}

	publisher, err := kafka.NewPublisher(s.configs.Kafka.ClientID, s.configs.Kafka.Addrs)
	if err != nil {
		panic(err)
	}

	s.publisher = publisher
}

func (s *srv) loadRedis() {
	if s.configs.Redis.Addr == "" {
		xcontext.Logger(s.ctx).Infof("No redis configured, raffle results are read from the database")
		return
	}

	client, err := xredis.NewClient(s.ctx, s.configs.Redis.Addr)
	if err != nil {
		panic(err)
	}

	s.redisClient = client
}

func (s *srv) loadRepos() {
	s.tokenRepo = repository.NewTokenRepository()
	s.offeringRepo = repository.NewOfferingRepository()
	s.cardTemplateRepo = repository.NewCardTemplateRepository()
	s.cardRepo = repository.NewCardRepository()
	s.purchaseRepo = repository.NewPurchaseRepository()
	s.drawRecordRepo = repository.NewDrawRecordRepository()
	s.raffleRepo = repository.NewRaffleRepository()
}

func (s *srv) loadDomains() {
	s.ledger = ledger.New(s.tokenRepo)
	s.catalog = inventory.NewCatalog(s.offeringRepo)
	s.vaultStore = vault.NewStore(s.cardRepo, s.ledger)
	s.valuator = draw.NewValuator(s.cardTemplateRepo)
	s.drawEngine = draw.NewEngine(s.drawRecordRepo, s.valuator, s.vaultStore, s.publisher)

	s.offeringDomain = domain.NewOfferingDomain(
		s.offeringRepo,
		s.cardTemplateRepo,
		s.cardRepo,
		s.purchaseRepo,
		s.drawRecordRepo,
		s.ledger,
		s.catalog,
		s.drawEngine,
	)
	s.raffleDomain = domain.NewRaffleDomain(
		s.raffleRepo,
		s.cardTemplateRepo,
		s.ledger,
		s.vaultStore,
		s.valuator,
		s.publisher,
		s.redisClient,
	)
	s.vaultDomain = domain.NewVaultDomain(s.vaultStore, s.ledger)
	s.tokenDomain = domain.NewTokenDomain(s.ledger)
}
