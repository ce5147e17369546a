package zohosync

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"

	"github.com/tlbgroup/mkitchen-backend/config"
	"github.com/tlbgroup/mkitchen-backend/models"
	"github.com/tlbgroup/mkitchen-backend/utils"
)

// PubSubPushEnvelope is the push-subscription wrapper Google delivers.
type PubSubPushEnvelope struct {
	Message struct {
		Data      []byte `json:"data"`
		MessageId string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PublishProcessRun queues a processing run on the bill-processing topic.
func PublishProcessRun(ctx context.Context, payload ProcessPubSubPayload) error {
	topicName := strings.TrimSpace(os.Getenv("ZOHO_PROCESS_TOPIC"))
	if topicName == "" {
		topicName = "zoho-bill-processing"
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if utils.EnvBoolDefault("ZOHO_PROCESS_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	data, _ := json.Marshal(payload)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushHandler consumes push deliveries from the processing topic.
// Malformed payloads are acked with 204: redelivering garbage helps no one.
func PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !utils.EnvBoolDefault("ENABLE_ZOHO_PUBSUB_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload ProcessPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			c.Status(204)
			return
		}

		triggeredBy := payload.TriggeredBy
		if triggeredBy == "" {
			triggeredBy = models.SyncTriggeredSystem
		}

		ctx := c.Request.Context()
		db := config.GetDB()
		if len(payload.BillIds) > 0 {
			_, _ = ProcessBills(ctx, db, payload.BillIds, triggeredBy)
		} else {
			_, _ = ProcessAllPending(ctx, db, triggeredBy)
		}
		c.Status(204)
	}
}
