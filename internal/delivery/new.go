package delivery

import (
	"context"
	"fmt"

	"media-toolkit/internal/streaming"
)

// Config selects and configures a strategy.
type Config struct {
	Mode     Mode
	FinalDir string
	Stream   streaming.Config
	Object   ObjectConfig
}

// New builds the strategy named by config.Mode.
func New(ctx context.Context, config Config) (Strategy, error) {
	switch config.Mode {
	case ModePersist:
		return NewPersist(config.FinalDir), nil
	case ModeRelocate:
		return NewRelocate(config.FinalDir), nil
	case ModeStream:
		return NewStream(config.Stream), nil
	case ModeObject:
		o, err := NewObject(ctx, config.Object)
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", config.Mode)
	}
}
