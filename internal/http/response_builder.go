// This file implements the builder for JSON responses and the toast-style
// notification envelope every error is rendered as.

package http

import (
	"encoding/json"
	"net/http"
)

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Notification is a one-line message the dashboard shows as a toast.
type Notification struct {
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
}

type notificationEnvelope struct {
	Notification *Notification `json:"notification"`
}

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode   int
	headers      map[string]string
	payload      any
	notification *Notification
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the response payload. It takes precedence over a notification.
func (b *ResponseBuilder) JSON(payload any) *ResponseBuilder {
	b.payload = payload
	return b
}

// Notify sets the notification sent when there is no payload.
func (b *ResponseBuilder) Notify(t NotificationType, title, message string) *ResponseBuilder {
	b.notification = &Notification{Type: t, Title: title, Message: message}
	return b
}

// Write sends the built response.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	var body any
	switch {
	case b.payload != nil:
		body = b.payload
	case b.notification != nil:
		body = notificationEnvelope{Notification: b.notification}
	}
	if body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"notification":{"type":"error","title":"Error","message":"Could not encode the response."}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

// ErrorResponse creates an error notification response.
func ErrorResponse(statusCode int, title, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Notify(NotificationError, title, message)
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "Invalid request", message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, "Invalid data", message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "Not found", message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Error", message)
}

func ServiceUnavailableError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, "Unavailable", message)
}

// SuccessResponse creates a success notification response.
func SuccessResponse(title, message string) *ResponseBuilder {
	return NewResponse().Notify(NotificationSuccess, title, message)
}
