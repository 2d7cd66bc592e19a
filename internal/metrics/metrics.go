package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusforum_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusforum_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Credit and moderation metrics
var (
	CreditDeductedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusforum_credit_points_deducted_total",
		Help: "Total credit points deducted across all users",
	})

	BansImposedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusforum_bans_imposed_total",
		Help: "Total number of bans imposed, by trigger path",
	}, []string{"path"})

	SweepUnbannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusforum_sweep_unbanned_total",
		Help: "Total number of users rehabilitated by the unban sweep",
	})

	WeeklyResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusforum_weekly_resets_total",
		Help: "Total number of user scores restored by the weekly reset",
	})

	ViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusforum_violations_total",
		Help: "Total number of violation flags recorded, by content type",
	}, []string{"content_type"})

	AdmissionDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusforum_admission_denied_total",
		Help: "Total number of denied post/comment attempts, by reason",
	}, []string{"reason"})
)

// Business gauges (updated periodically by the collector)
var (
	UsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campusforum_users_total",
		Help: "Total number of registered users",
	})

	ActiveBansTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campusforum_active_bans_total",
		Help: "Number of users with an active ban",
	})

	LowScoreUsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campusforum_low_score_users_total",
		Help: "Number of users below the admission threshold",
	})
)

// Event counters
var (
	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusforum_registrations_total",
		Help: "Total number of registration attempts",
	}, []string{"status"})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusforum_logins_total",
		Help: "Total number of login attempts",
	}, []string{"status"})

	PostsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusforum_posts_created_total",
		Help: "Total number of posts created",
	})

	CommentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusforum_comments_created_total",
		Help: "Total number of comments created",
	})
)

// NormalizePath reduces high-cardinality path labels by replacing
// dynamic segments with placeholders, keeping the label space bounded.
func NormalizePath(path string) string {
	segments := splitPath(path)
	if len(segments) < 2 || segments[0] != "api" {
		return path
	}

	switch segments[1] {
	case "posts":
		if len(segments) == 3 {
			return "/api/posts/:id"
		}
		if len(segments) == 4 && segments[3] == "comments" {
			return "/api/posts/:id/comments"
		}
	case "comments":
		if len(segments) == 3 {
			return "/api/comments/:id"
		}
	case "categories":
		if len(segments) == 3 {
			return "/api/categories/:id"
		}
	case "inbox":
		if len(segments) == 4 && segments[3] == "read" {
			return "/api/inbox/:id/read"
		}
	case "users":
		if len(segments) == 4 && segments[3] == "violations" {
			return "/api/users/:id/violations"
		}
	}

	return path
}

func splitPath(path string) []string {
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}
	return segments
}
