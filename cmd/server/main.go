package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/lumarkic/volonterko/internal/config"
	"github.com/lumarkic/volonterko/internal/database"
	"github.com/lumarkic/volonterko/internal/handler"
	"github.com/lumarkic/volonterko/internal/middleware"
	"github.com/lumarkic/volonterko/internal/queue"
	"github.com/lumarkic/volonterko/internal/repository"
	"github.com/lumarkic/volonterko/internal/router"
	"github.com/lumarkic/volonterko/internal/service"
)

func main() {
	// .env is optional; real deployments pass the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(database.Params{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	orgs := repository.NewOrganizationRepo(db)
	actions := repository.NewActionRepo(db)
	signups := repository.NewSignupRepo(db)
	tags := repository.NewTagRepo(db)

	signupSvc := service.NewSignupService(db, signups, actions, orgs)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicHandler(actions, signups, orgs, tags)
	volunteerH := handler.NewVolunteerHandler(signupSvc)
	orgActionH := handler.NewOrgActionHandler(actions, orgs, tags, rdb, cacheCfg.Prefix)
	orgSignupH := handler.NewOrgSignupHandler(signupSvc, signups, actions, orgs)
	organizationH := handler.NewOrganizationHandler(orgs)
	adminH := handler.NewAdminHandler(orgs, users)

	cache := middleware.NewRedisCache(cacheCfg, rdb)
	limiter := middleware.NewTokenBucket(rlCfg, rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, cache)
	router.RegisterVolunteer(e, volunteerH, organizationH, cfg.JWTSecret, limiter)
	router.RegisterOrganization(e, orgActionH, orgSignupH, organizationH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)

	// Attendance audit trail consumer.
	go func() {
		if err := queue.StartAttendanceConsumer(); err != nil {
			log.Printf("attendance consumer stopped: %v", err)
		}
	}()

	// Periodic purge of long-expired refresh tokens.
	go func() {
		t := time.NewTicker(6 * time.Hour)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := tokens.DeleteExpired(ctx, 24*time.Hour); err != nil {
				log.Printf("token cleanup: %v", err)
			} else if n > 0 {
				log.Printf("token cleanup: removed %d expired tokens", n)
			}
			cancel()
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
