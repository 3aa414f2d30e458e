package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"

	"emergency-service/internal/config"
	"emergency-service/internal/emergency"
	"emergency-service/internal/logging"
	"emergency-service/internal/models"
)

// Consumer ingests SOS messages published by field devices and turns them
// into emergency triggers.
type Consumer struct {
	reader *kafka.Reader
	svc    *emergency.Service
	logger *logging.Logger
}

// deviceSOS is the wire format devices publish on the SOS topic.
type deviceSOS struct {
	DeviceID      string   `json:"device_id"`
	Location      string   `json:"location"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	PatientStatus string   `json:"patient_status"`
	Description   string   `json:"description"`
}

func NewConsumer(cfg config.Config, svc *emergency.Service) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.Kafka.Broker},
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: reader, svc: svc, logger: svc.Logger()}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started")
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					c.logger.Infof("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				continue
			}
			c.handle(ctx, msg.Value)
		}
	}()
}

func (c *Consumer) handle(ctx context.Context, value []byte) {
	var sos deviceSOS
	if err := json.Unmarshal(value, &sos); err != nil {
		c.logger.Errorf("Unmarshal device SOS failed: %v", err)
		return
	}
	if sos.DeviceID == "" {
		c.logger.Errorf("Invalid device SOS: missing device_id")
		return
	}

	recipients, err := c.svc.ResponderEmails(ctx)
	if err != nil {
		// Record the emergency even if nobody can be notified right now.
		c.logger.Warnf("Responder resolution failed for device %s: %v", sos.DeviceID, err)
		recipients = nil
	}

	input := models.EmergencyInput{
		DeviceID:      sos.DeviceID,
		Location:      sos.Location,
		Latitude:      sos.Latitude,
		Longitude:     sos.Longitude,
		PatientStatus: sos.PatientStatus,
		Description:   sos.Description,
		TriggeredBy:   sos.DeviceID,
	}
	res, err := c.svc.Trigger(ctx, input, recipients)
	if err != nil {
		c.logger.Errorf("Trigger from device %s failed: %v", sos.DeviceID, err)
		return
	}
	c.logger.Infof("Device %s raised emergency %s (%d responders)", sos.DeviceID, res.EmergencyID, len(recipients))
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
