package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// EnsureTopics 连接到 Kafka 集群，并自动创建 topics 中尚不存在的主题。
// 空字符串会被忽略。
func EnsureTopics(ctx context.Context, brokers []string, topics ...string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("未配置 Kafka brokers")
	}

	// 1. 建立管理连接
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("kafka 初始化连接失败: %w", err)
	}
	defer conn.Close()

	// 2. 获取已存在的主题
	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}

	// 3. 创建不存在的主题，必须发往 controller
	toCreate := missingTopics(partitions, topics)
	if len(toCreate) == 0 {
		return nil
	}
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("无法获取 Kafka controller: %w", err)
	}
	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("连接 Kafka controller %s 失败: %w", addr, err)
	}
	defer ctrlConn.Close()

	if err := ctrlConn.CreateTopics(toCreate...); err != nil {
		return fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	return nil
}

// missingTopics 返回 wanted 中不在 partitions 里的主题配置，顺序与 wanted 一致且去重。
func missingTopics(partitions []kafka.Partition, wanted []string) []kafka.TopicConfig {
	existing := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		existing[p.Topic] = struct{}{}
	}
	var out []kafka.TopicConfig
	for _, name := range wanted {
		if name == "" {
			continue
		}
		if _, ok := existing[name]; ok {
			continue
		}
		existing[name] = struct{}{}
		out = append(out, kafka.TopicConfig{
			Topic:             name,
			NumPartitions:     1, // 使用默认值
			ReplicationFactor: 1, // 使用默认值
		})
	}
	return out
}

// NewWriter 创建写入单个主题的 Writer。
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
}

// NewReader 创建加入消费者组的 Reader。
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxAttempts: 10,
		Dialer: &kafka.Dialer{
			Timeout: 10 * time.Second,
		},
	})
}
