package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rawScheduleDoc mirrors only the slice of the config document needed to
// recover each stream's 168-slot schedule vector. viper/mapstructure
// handles the rest of GlobalConfig; a fixed-size array is easier to
// parse directly with yaml.v3 than to coerce through viper's generic
// map-based unmarshal.
type rawScheduleDoc struct {
	Streams []struct {
		Name              string `yaml:"name"`
		RecordingSchedule []int  `yaml:"recording_schedule"`
	} `yaml:"streams"`
}

// loadSchedulesFromYAML re-reads the config file directly to populate
// each StreamConfig.RecordingSchedule, since mapstructure (viper) cannot
// target a fixed-size array.
func loadSchedulesFromYAML(path string, cfg *GlobalConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw rawScheduleDoc
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse schedule vectors: %w", err)
	}

	byName := make(map[string][]int, len(raw.Streams))
	for _, s := range raw.Streams {
		byName[s.Name] = s.RecordingSchedule
	}

	for i := range cfg.Streams {
		slots, ok := byName[cfg.Streams[i].Name]
		if !ok {
			continue
		}
		var sched Schedule
		for idx, v := range slots {
			if idx >= len(sched) {
				break
			}
			sched[idx] = v != 0
		}
		cfg.Streams[i].RecordingSchedule = sched
	}
	return nil
}
