package queries

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"transporter-dashboard/internal/apiclient"
	"transporter-dashboard/internal/models"
	"transporter-dashboard/internal/notifications"
	"transporter-dashboard/internal/services"
)

// recentKeep is how many drivers the recent list holds after an optimistic insert
const recentKeep = 5

func (q *Client) notify(n notifications.Notification) {
	if q.notifications != nil {
		q.notifications.Publish(n)
	}
}

func (q *Client) succeeded(message string) {
	q.notify(notifications.Notification{Type: notifications.TypeSuccess, Message: message})
}

func (q *Client) failed(message string) {
	q.notify(notifications.Notification{Type: notifications.TypeError, Message: message})
}

// CreateRequest creates a request, seeds its detail entry and refreshes the lists
func (q *Client) CreateRequest(ctx context.Context, in models.CreateRequestInput) (models.TransportationRequest, error) {
	created, err := q.requests.Create(ctx, in)
	if err != nil {
		q.failed("Failed to create request: " + err.Error())
		return created, err
	}
	q.cache.Invalidate(RequestLists)
	q.cache.SetQueryData(RequestDetail(created.ID.String()), func(interface{}) interface{} { return created })
	q.succeeded(fmt.Sprintf("Request %s created successfully", created.ID))
	return created, nil
}

// UpdateRequest updates a request, replaces its detail entry and refreshes the lists
func (q *Client) UpdateRequest(ctx context.Context, id string, in models.CreateRequestInput) (models.TransportationRequest, error) {
	updated, err := q.requests.Update(ctx, id, in)
	if err != nil {
		q.failed("Failed to update request: " + err.Error())
		return updated, err
	}
	if updated.ID == "" {
		updated.ID = models.ID(id)
	}
	q.cache.SetQueryData(RequestDetail(updated.ID.String()), func(interface{}) interface{} { return updated })
	q.cache.Invalidate(RequestLists)
	q.succeeded(fmt.Sprintf("Request %s updated successfully", updated.ID))
	return updated, nil
}

// DeleteRequest deletes a request and drops its detail entry
func (q *Client) DeleteRequest(ctx context.Context, id string) error {
	if err := q.requests.Delete(ctx, id); err != nil {
		q.failed("Failed to delete request: " + err.Error())
		return err
	}
	q.cache.Remove(RequestDetail(id))
	q.cache.Invalidate(RequestLists)
	q.succeeded(fmt.Sprintf("Request %s deleted successfully", id))
	return nil
}

// afterDeliveryChange refreshes everything a delivery touches: the lists, the request and driver stats
func (q *Client) afterDeliveryChange(requestID string) {
	q.cache.Invalidate(RequestLists)
	q.cache.Invalidate(RequestDetail(requestID))
	q.cache.Invalidate(DriversKey)
}

// requestForDelivery loads the request a delivery belongs to. A request the backend does not know is
// reported as found=false so the delivery call itself can answer with its not-found message.
func (q *Client) requestForDelivery(ctx context.Context, requestID string) (req models.TransportationRequest, found bool, err error) {
	req, err = q.Request(ctx, requestID)
	switch {
	case err == nil:
		return req, true, nil
	case errors.Is(err, apiclient.ErrNotFound):
		return req, false, nil
	default:
		return req, false, err
	}
}

// LogDelivery records a delivery after checking the actual pickup against the request's plan
func (q *Client) LogDelivery(ctx context.Context, requestID string, in models.LogDeliveryInput) (models.Delivery, error) {
	var d models.Delivery
	req, found, err := q.requestForDelivery(ctx, requestID)
	if err == nil {
		if found {
			d, err = q.deliveries.LogForRequest(ctx, req, in)
		} else {
			d, err = q.deliveries.Log(ctx, requestID, in)
		}
	}
	if err != nil {
		q.failed("Failed to log delivery: " + err.Error())
		return d, err
	}
	q.afterDeliveryChange(requestID)
	q.succeeded("Delivery logged successfully!")
	return d, nil
}

// UpdateDelivery edits a logged delivery of a request after the same pickup check as LogDelivery
func (q *Client) UpdateDelivery(ctx context.Context, requestID, deliveryID string, in models.UpdateDeliveryInput) (models.Delivery, error) {
	var d models.Delivery
	req, found, err := q.requestForDelivery(ctx, requestID)
	if err == nil {
		if found {
			d, err = q.deliveries.UpdateForRequest(ctx, req, deliveryID, in)
		} else {
			d, err = q.deliveries.Update(ctx, deliveryID, in)
		}
	}
	if err != nil {
		q.failed("Failed to update delivery: " + err.Error())
		return d, err
	}
	q.afterDeliveryChange(requestID)
	q.succeeded("Delivery updated successfully!")
	return d, nil
}

// ConfirmDelivery marks a request's delivery complete
func (q *Client) ConfirmDelivery(ctx context.Context, requestID string) error {
	if err := q.deliveries.Confirm(ctx, requestID); err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "An unexpected error occurred while confirming delivery completion."
		}
		q.notify(notifications.Notification{
			Type:    notifications.TypeError,
			Title:   "Failed to Confirm Delivery",
			Message: msg,
		})
		return err
	}
	q.cache.Invalidate(RequestLists)
	q.cache.Invalidate(RequestDetail(requestID))
	q.notify(notifications.Notification{
		Type:    notifications.TypeSuccess,
		Title:   "Delivery Confirmed",
		Message: "Delivery completion has been confirmed successfully.",
		Push:    true,
	})
	return nil
}

// CreateDriver creates a driver and, only once the backend accepted it, puts it at the front of
// the cached recent list.
func (q *Client) CreateDriver(ctx context.Context, in models.CreateDriverInput) (models.Driver, error) {
	d, err := q.drivers.Create(ctx, in)
	if err != nil {
		q.failed("Failed to add driver: " + err.Error())
		return d, err
	}
	q.cache.Invalidate(DriversKey)
	q.cache.SetQueryData(RecentDrivers(), func(old interface{}) interface{} {
		recent, ok := old.(models.RecentDrivers)
		if !ok {
			return models.RecentDrivers{Data: []models.Driver{d}, Total: 1}
		}
		return recent.Prepend(d, recentKeep)
	})
	q.notify(notifications.Notification{
		Type:    notifications.TypeSuccess,
		Title:   "Driver Added",
		Message: fmt.Sprintf("%s driver %s added successfully", d.Type.Label(), d.Name),
		Push:    true,
	})
	return d, nil
}

// UpdateDriver updates a driver and its cached entry
func (q *Client) UpdateDriver(ctx context.Context, id string, in models.CreateDriverInput) (models.Driver, error) {
	d, err := q.drivers.Update(ctx, id, in)
	if err != nil {
		q.failed("Failed to update driver: " + err.Error())
		return d, err
	}
	if d.ID == "" {
		d.ID = models.ID(id)
	}
	q.cache.SetQueryData(Driver(d.ID.String()), func(interface{}) interface{} { return d })
	q.cache.Invalidate(DriversKey.Append("search"))
	q.cache.Invalidate(DriversKey.Append("list"))
	q.cache.Invalidate(RecentDrivers())
	q.cache.Invalidate(DriverStats())
	q.succeeded(fmt.Sprintf("Driver %s updated successfully", d.Name))
	return d, nil
}

// DeleteDriver deletes a driver and drops its cached entries
func (q *Client) DeleteDriver(ctx context.Context, id string) error {
	if err := q.drivers.Delete(ctx, id); err != nil {
		q.failed("Failed to delete driver: " + err.Error())
		return err
	}
	q.cache.Remove(Driver(id))
	q.cache.Invalidate(DriversKey)
	q.succeeded(fmt.Sprintf("Driver %s deleted successfully", id))
	return nil
}

// RateDriver records a rating and refreshes the driver's ratings and detail
func (q *Client) RateDriver(ctx context.Context, driverID, deliveryID string, in services.RatingInput) (models.DriverRating, error) {
	r, err := q.drivers.Rate(ctx, driverID, deliveryID, in)
	if err != nil {
		q.failed("Failed to save rating: " + err.Error())
		return r, err
	}
	q.cache.Invalidate(Driver(driverID))
	q.cache.Invalidate(DriverStats())
	q.succeeded("Rating saved successfully")
	return r, nil
}

// GenerateInsights asks for new AI insights, patches every cached copy of the driver, then
// invalidates them so the next read confirms the backend state.
func (q *Client) GenerateInsights(ctx context.Context, driverID string, ratings []models.DriverRating) (services.Insights, error) {
	insights, err := q.drivers.GenerateInsights(ctx, driverID, ratings)
	if err != nil {
		q.notify(notifications.Notification{
			Type:    notifications.TypeError,
			Title:   "Insights Generation Failed",
			Message: err.Error(),
		})
		return insights, err
	}

	q.patchDriver(driverID, func(d models.Driver) models.Driver {
		d.AIInsights = insights.AIInsights
		d.AIInsightsUpdatedAt = insights.AIInsightsUpdatedAt
		return d
	})
	q.cache.Invalidate(Driver(driverID))
	q.cache.Invalidate(DriversKey.Append("list"))
	q.cache.Invalidate(DriversKey.Append("search"))

	q.notify(notifications.Notification{
		Type:    notifications.TypeSuccess,
		Title:   "AI Insights Generated",
		Message: "Analysis is complete and insights are available.",
	})
	return insights, nil
}

// UpdateInsights saves edited insights text and refreshes the driver entry
func (q *Client) UpdateInsights(ctx context.Context, driverID, text string) (models.Driver, error) {
	d, err := q.drivers.UpdateInsights(ctx, driverID, text)
	if err != nil {
		q.failed("Failed to save insights: " + err.Error())
		return d, err
	}
	q.patchDriver(driverID, func(cached models.Driver) models.Driver {
		cached.AIInsights = text
		cached.AIInsightsUpdatedAt = models.Timestamp{Time: time.Now().UTC()}
		return cached
	})
	q.cache.Invalidate(Driver(driverID))
	q.succeeded("Insights saved successfully")
	return d, nil
}

// patchDriver applies fn to the cached driver detail and to the driver inside any cached page
func (q *Client) patchDriver(driverID string, fn func(models.Driver) models.Driver) {
	q.cache.SetQueryData(Driver(driverID), func(old interface{}) interface{} {
		d, ok := old.(models.Driver)
		if !ok {
			return nil
		}
		return fn(d)
	})

	for _, prefix := range [][]string{{"list"}, {"search"}} {
		for _, key := range q.cache.Keys(DriversKey.Append(prefix...)) {
			q.cache.SetQueryData(key, func(old interface{}) interface{} {
				page, ok := old.(models.DriverPage)
				if !ok {
					return nil
				}
				patched := page
				patched.Data = make([]models.Driver, len(page.Data))
				for i, d := range page.Data {
					if d.ID.String() == driverID {
						d = fn(d)
					}
					patched.Data[i] = d
				}
				return patched
			})
		}
	}
}

// RefreshDashboard invalidates every dashboard entry and reloads the four core aggregates
func (q *Client) RefreshDashboard(ctx context.Context, r models.DateRange) (models.DashboardOverview, error) {
	n := q.cache.Invalidate(DashboardKey)
	log.Printf("🔄 Dashboard refresh: invalidated %d cached aggregate(s)", n)

	overview, err := q.Overview(ctx, r)
	if err != nil {
		q.notify(notifications.Notification{
			Type:    notifications.TypeError,
			Title:   "Refresh Failed",
			Message: err.Error(),
		})
		return overview, err
	}
	q.notify(notifications.Notification{
		Type:    notifications.TypeSuccess,
		Title:   "Dashboard Refreshed",
		Message: "All dashboard data has been updated successfully.",
	})
	return overview, nil
}
