package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "EasyStock"

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	SignUpsTotal           metric.Int64Counter
	SignInsTotal           metric.Int64Counter
	SignOutsTotal          metric.Int64Counter
	VerificationsTotal     metric.Int64Counter
	PasswordResetsTotal    metric.Int64Counter
	SessionCacheLookups    metric.Int64Counter
	GuardRedirectsTotal    metric.Int64Counter
	MailDeliveriesTotal    metric.Int64Counter
	MailDeliverySeconds    metric.Float64Histogram
	DbQueryDurationSeconds metric.Float64Histogram
	ExpiredRowsPurgedTotal metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once, from the global MeterProvider.
// Call it after the provider is installed so the instruments are exported.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)
		m := &AppMetrics{}

		m.SignUpsTotal = counter(meter, "auth_signups_total", "Total number of sign up attempts", "{request}")
		m.SignInsTotal = counter(meter, "auth_signins_total", "Total number of sign in attempts by outcome", "{request}")
		m.SignOutsTotal = counter(meter, "auth_signouts_total", "Total number of sign outs", "{request}")
		m.VerificationsTotal = counter(meter, "auth_email_verifications_total", "Email verification attempts by outcome", "{request}")
		m.PasswordResetsTotal = counter(meter, "auth_password_resets_total", "Password reset attempts by outcome", "{request}")
		m.SessionCacheLookups = counter(meter, "auth_session_cache_lookups_total", "Session cache lookups by result", "{lookup}")
		m.GuardRedirectsTotal = counter(meter, "route_guard_redirects_total", "Redirects issued by the route guard by reason", "{redirect}")
		m.MailDeliveriesTotal = counter(meter, "mail_deliveries_total", "Transactional mail deliveries by outcome", "{message}")
		m.ExpiredRowsPurgedTotal = counter(meter, "auth_expired_rows_purged_total", "Expired sessions and tokens removed by the janitor", "{row}")

		var err error
		m.MailDeliverySeconds, err = meter.Float64Histogram(
			"mail_delivery_duration_seconds",
			metric.WithDescription("Duration of transactional mail delivery in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create mail_delivery_duration_seconds: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		appMetrics = m
	})
}

func counter(meter metric.Meter, name, description, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return c
}

// Get returns the AppMetrics instance, initializing it on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

// Outcome is a convenience attribute set used by the auth counters.
func Outcome(outcome string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("outcome", outcome))
}
