package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"clubfeed/facebook"
	"clubfeed/fetch"
	"clubfeed/models"
	"clubfeed/youtube"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const youtubePath = "/api/youtube-videos"

type NewsSource interface {
	Fetch(ctx context.Context, refresh bool) (*models.NewsResponse, error)
}

type PostsSource interface {
	Fetch(ctx context.Context, q facebook.Query) (*models.PostsResponse, error)
}

type VideoSource interface {
	Videos(ctx context.Context) (*models.VideosResponse, error)
}

type ServerConfig struct {
	News   NewsSource
	Posts  PostsSource
	Videos VideoSource

	// Origins allowed on the news and posts endpoints. The video endpoint
	// always allows every origin.
	AllowOrigins string

	// Deadline for a whole request, every upstream call included.
	RequestTimeout time.Duration
}

// Returns a fiber.App serving the aggregation endpoints
func Server(config *ServerConfig) *fiber.App {
	if config.AllowOrigins == "" {
		config.AllowOrigins = "*"
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 60 * time.Second
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	app.Use(cors.New(cors.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == youtubePath
		},
		AllowOrigins: config.AllowOrigins,
		AllowMethods: "GET,OPTIONS",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/api/bwf-news", func(c *fiber.Ctx) error {
		if config.News == nil {
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "BWF news is not configured"})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), config.RequestTimeout)
		defer cancel()

		resp, err := config.News.Fetch(ctx, c.Query("refresh") == "1")
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error aggregating BWF news")
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: err.Error()})
		}
		return c.JSON(resp)
	})

	app.Get("/api/fb-feed", func(c *fiber.Ctx) error {
		empty := models.EmptyPostsResponse{Items: []models.Post{}}
		if config.Posts == nil {
			return c.JSON(empty)
		}

		// Unparseable limits fall back to the default
		limit, _ := strconv.Atoi(c.Query("limit"))

		q := facebook.Query{
			Limit:      limit,
			EventsOnly: c.Query("type") == "events",
			Refresh:    c.Query("refresh") == "1",
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), config.RequestTimeout)
		defer cancel()

		resp, err := config.Posts.Fetch(ctx, q)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Warn("Facebook feed unavailable, serving empty list")
			return c.JSON(empty)
		}
		return c.JSON(resp)
	})

	app.Options(youtubePath, func(c *fiber.Ctx) error {
		youtubeHeaders(c)
		return c.SendStatus(fiber.StatusOK)
	})

	app.Get(youtubePath, func(c *fiber.Ctx) error {
		youtubeHeaders(c)
		c.Set(fiber.HeaderCacheControl, "s-maxage=300, stale-while-revalidate=600")

		if config.Videos == nil {
			return c.Status(fiber.StatusInternalServerError).JSON(models.VideosErrorResponse{
				Error:   "Failed to fetch videos",
				Message: "YouTube is not configured",
				Videos:  []models.Video{},
			})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), config.RequestTimeout)
		defer cancel()

		resp, err := config.Videos.Videos(ctx)
		switch {
		case errors.Is(err, youtube.ErrChannelNotFound):
			return c.Status(fiber.StatusNotFound).JSON(models.VideosErrorResponse{
				Error:  "Channel not found",
				Videos: []models.Video{},
			})
		case errors.Is(err, youtube.ErrUploadsNotFound):
			return c.Status(fiber.StatusNotFound).JSON(models.VideosErrorResponse{
				Error:  "Uploads playlist not found",
				Videos: []models.Video{},
			})
		case err != nil:
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error listing YouTube videos")
			return c.Status(fiber.StatusInternalServerError).JSON(models.VideosErrorResponse{
				Error:   "Failed to fetch videos",
				Message: upstreamMessage(err),
				Videos:  []models.Video{},
			})
		}

		if resp.Videos == nil {
			resp.Videos = []models.Video{}
		}
		return c.JSON(resp)
	})

	return app
}

// upstreamMessage describes a failed upstream call without its error text,
// which can carry request URLs.
func upstreamMessage(err error) string {
	var status *fetch.StatusError
	switch {
	case errors.Is(err, youtube.ErrNoAPIKey):
		return "YouTube is not configured"
	case errors.As(err, &status):
		return fmt.Sprintf("upstream request failed with status %d", status.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "upstream request timed out"
	}
	return "upstream request failed"
}

func youtubeHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET, OPTIONS")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type")
}

// errorHandler answers every unhandled error with a JSON body
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	if code >= 500 {
		log.WithFields(log.Fields{
			"path":  c.Path(),
			"error": err,
		}).Error("Unhandled error")
	}
	return c.Status(code).JSON(models.ErrorResponse{Error: err.Error()})
}
