package app

import (
	"encoding/json"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gyro_trainer/internal/gyro"
)

// mqttSource adapts a gyro sample topic to the gyro.Source interface.
// It keeps the most recent published sample; before the first message
// arrives it reports stillness rather than an error, so the tick loop
// can start ahead of the producer. Producers publish both axes on one
// topic, so samples on other axes are dropped here.
type mqttSource struct {
	axis string

	mu   sync.RWMutex
	last gyro.Sample
}

func newMQTTSource(client mqtt.Client, topic, axis string) (*mqttSource, error) {
	s := &mqttSource{axis: axis}
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var sample gyro.Sample
		if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
			log.Printf("gyro sample unmarshal error: %v", err)
			return
		}
		if sample.Axis != s.axis {
			return
		}
		s.mu.Lock()
		s.last = sample
		s.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return nil, token.Error()
	}
	log.Printf("subscribed to %s samples on %s", axis, topic)
	return s, nil
}

func (s *mqttSource) Next() (gyro.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, nil
}
