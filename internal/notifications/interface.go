package notifications

import "github.com/azure/reddit-mentions-listener/internal/models"

// NotificationInterface delivers watch reports and sentiment alerts
type NotificationInterface interface {
	SendReport(report *models.Report) error
	SendAlert(alert *models.Alert) error
}
