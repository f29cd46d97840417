package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Consume one message from a topic and print it, for eyeballing what the
// pipeline actually put on the wire:
//
//	go run ./cmd/consume_one -topic=dicom.metadata.v1
//	go run ./cmd/consume_one -topic=dicom.metadata.dlq
func main() {
	topic := flag.String("topic", "dicom.metadata.v1", "topic to consume from")
	flag.Parse()

	bootstrap := os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
	if bootstrap == "" {
		bootstrap = "localhost:9092"
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     strings.Split(bootstrap, ","),
		Topic:       *topic,
		StartOffset: kafka.FirstOffset,
	})
	defer r.Close()

	msg, err := r.ReadMessage(context.Background())
	if err != nil {
		log.Fatalf("read from %s: %v", *topic, err)
	}

	for _, h := range msg.Headers {
		fmt.Printf("header %s: %s\n", h.Key, string(h.Value))
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(msg.Value, &pretty); err == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Println(string(msg.Value))
}
