package fakeapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	mw "github.com/tbourn/pawconnect/internal/fakeapi/middleware"
)

// routes attaches the middleware chain and every endpoint.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. AccessLog: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//  8. gzip
//  9. Bearer authentication, then the per user/IP rate limiter
func (s *Server) routes(r *gin.Engine) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(s.opts.ServiceName))
	r.Use(mw.RequestID())
	r.Use(mw.AccessLog(mw.LogOptions{}))
	r.Use(mw.Recovery())

	// Uploads are the largest bodies; leave room for the multipart framing.
	r.Use(limitBody(s.opts.MaxUploadBytes + 1<<20))

	r.Use(mw.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	corsHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	if len(s.opts.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(s.opts.AllowedOrigins))
		for _, o := range s.opts.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(mw.SecurityHeaders(mw.SecurityOptions{}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", filesPath})))

	r.NoRoute(func(c *gin.Context) {
		mw.Fail(c, http.StatusNotFound, mw.CodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		mw.Fail(c, http.StatusMethodNotAllowed, mw.CodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api", s.authenticate())
	if s.opts.RateRPS > 0 {
		api.Use(mw.NewRateLimiter(s.opts.RateRPS, s.opts.RateBurst, mw.KeyByUserOrIP()).Handler())
	}
	user := gin.HandlerFunc(requireUser)
	admin := gin.HandlerFunc(requireAdmin)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", s.signup)
		auth.POST("/signin", s.signin)
		auth.POST("/verify", s.verify)
		auth.POST("/resetrequest", s.resetRequest)
		auth.PUT("/reset/:token", s.resetPassword)
		auth.PUT("/user/:id/update", user, s.updateUser)
		auth.GET("/users", admin, s.listUsers)
		auth.PUT("/admin/user/:id/ban", admin, s.banUser)
	}

	// Wildcards sharing a position must share a name, so the owner id of
	// create routes is read from :id.
	adoption := api.Group("/adoption")
	{
		adoption.GET("/all", s.listAdoptions)
		adoption.GET("/user/:uid", user, s.adoptionsByUser)
		adoption.GET("/requests/all", admin, s.allRequests)
		adoption.GET("/requests/user/:uid", user, s.requestsByUser)
		adoption.GET("/requests/:id", user, s.getRequest)
		adoption.PUT("/requests/:id/approve", admin, s.approveRequest)
		adoption.GET("/:id", s.getAdoption)
		adoption.POST("/:id", user, s.updateAdoption)
		adoption.DELETE("/:id", user, s.deleteAdoption)
		adoption.POST("/:id/createadoptionpost", user, s.createAdoption)
		adoption.POST("/:id/user/:uid/createadoptionrequest", user, s.createRequest)
	}

	missing := api.Group("/missing")
	{
		missing.GET("/all", s.listMissing)
		missing.GET("/user/:uid", user, s.missingByUser)
		missing.GET("/information/all", user, s.listInfos)
		missing.GET("/information/:id", user, s.getInfo)
		missing.PUT("/information/:id/approve", admin, s.approveInfo)
		missing.GET("/:id", s.getMissing)
		missing.PUT("/:id", user, s.updateMissing)
		missing.DELETE("/:id", user, s.deleteMissing)
		missing.POST("/:id/createmissingpost", user, s.createMissing)
		missing.POST("/:id/information", user, s.addInfo)
	}

	donationPost := api.Group("/donationpost")
	{
		donationPost.GET("/all", s.listDonationPosts)
		donationPost.GET("/user/:uid", user, s.donationPostsByUser)
		donationPost.GET("/:id", s.getDonationPost)
		donationPost.PUT("/:id", user, s.updateDonationPost)
		donationPost.DELETE("/:id", user, s.deleteDonationPost)
		donationPost.POST("/:id/create", user, s.createDonationPost)
	}

	donation := api.Group("/donation")
	{
		donation.GET("/user/:uid", user, s.donationsByUser)
		donation.POST("/:id/user/:uid/create", user, s.donate)
	}

	api.POST("/feedback/create", s.createFeedback)
	api.GET("/feedback/all", admin, s.listFeedback)
	api.GET("/admin/stats", admin, s.adminStats)

	api.POST("/files/upload", s.upload)
	api.GET("/files/:name", s.serveFile)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
