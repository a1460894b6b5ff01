package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeNumberProvisioned     = "number.provisioned"
	EventTypeProvisioningDeferred  = "provisioning.deferred"
	EventTypeProvisioningCompleted = "provisioning.completed"
	EventTypeProvisioningFailed    = "provisioning.failed"
)

type NumberProvisionedEvent struct {
	BaseEvent
	PhoneNumberID    int64  `json:"phone_number_id"`
	AccountID        int64  `json:"account_id"`
	Number           string `json:"number"`
	Region           string `json:"region"`
	Category         string `json:"category"`
	PaymentReference string `json:"payment_reference"`
}

func NewNumberProvisionedEvent(phoneNumberID, accountID int64, number, region, category, paymentReference string) *NumberProvisionedEvent {
	return &NumberProvisionedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeNumberProvisioned,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"phone_number_id":   phoneNumberID,
				"account_id":        accountID,
				"number":            number,
				"region":            region,
				"category":          category,
				"payment_reference": paymentReference,
			},
		},
		PhoneNumberID:    phoneNumberID,
		AccountID:        accountID,
		Number:           number,
		Region:           region,
		Category:         category,
		PaymentReference: paymentReference,
	}
}

// ProvisioningEvent reports the state of a telecom activation that did not succeed inline.
type ProvisioningEvent struct {
	BaseEvent
	TaskID        int64  `json:"task_id"`
	PhoneNumberID int64  `json:"phone_number_id"`
	Number        string `json:"number"`
	Region        string `json:"region"`
	Attempts      int    `json:"attempts"`
	Reason        string `json:"reason,omitempty"`
}

func NewProvisioningEvent(eventType string, taskID, phoneNumberID int64, number, region string, attempts int, reason string) *ProvisioningEvent {
	return &ProvisioningEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"task_id":         taskID,
				"phone_number_id": phoneNumberID,
				"number":          number,
				"region":          region,
				"attempts":        attempts,
				"reason":          reason,
			},
		},
		TaskID:        taskID,
		PhoneNumberID: phoneNumberID,
		Number:        number,
		Region:        region,
		Attempts:      attempts,
		Reason:        reason,
	}
}
