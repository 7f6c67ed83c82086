package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT 主题（显示面板固件订阅这些主题）
const (
	topicPanelCalls  = "voucher/panel/calls"
	topicRoomCalls   = "voucher/room/%s/calls"
	topicRoomChanged = "voucher/room/%s/changed"
)

// MQTTNotifier 将队列事件发布到 MQTT（用于大厅显示面板）
type MQTTNotifier struct {
	client mqtt.Client
	qos    byte
}

var _ Notifier = (*MQTTNotifier)(nil)

// NewMQTTNotifier 创建 MQTT 通知器
func NewMQTTNotifier(broker, clientID, username, password string, qos byte) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTNotifier{client: client, qos: qos}, nil
}

func (n *MQTTNotifier) QueueChanged(_ context.Context, roomID string) error {
	return n.publish(fmt.Sprintf(topicRoomChanged, roomID), QueueChangedEvent{
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
	})
}

func (n *MQTTNotifier) NewCall(_ context.Context, roomID string, ticketNumber int, patientName string) error {
	return n.publish(fmt.Sprintf(topicRoomCalls, roomID), NewCallEvent{
		RoomID:       roomID,
		TicketNumber: ticketNumber,
		PatientName:  patientName,
		Timestamp:    time.Now().UTC(),
	})
}

func (n *MQTTNotifier) PanelCall(_ context.Context, roomID string, ticketNumber int) error {
	return n.publish(topicPanelCalls, PanelCallEvent{
		RoomID:       roomID,
		TicketNumber: ticketNumber,
		Timestamp:    time.Now().UTC(),
	})
}

func (n *MQTTNotifier) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := n.client.Publish(topic, n.qos, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

// Close 断开 MQTT 连接
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
