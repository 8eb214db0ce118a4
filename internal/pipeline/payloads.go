package pipeline

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"

	"github.com/jonathan/resume-matcher/internal/types"
)

// DocumentPayload is the payload of a document-processing task.
type DocumentPayload struct {
	SubjectID string `mapstructure:"subjectId" json:"subjectId"`
	SourceRef string `mapstructure:"sourceRef" json:"sourceRef"`
	UserID    string `mapstructure:"userId" json:"userId,omitempty"`
	MediaType string `mapstructure:"mediaType" json:"mediaType,omitempty"`
}

// MatchPayload is the payload of a match-generation task.
type MatchPayload struct {
	SubjectID string              `mapstructure:"subjectId" json:"subjectId"`
	SourceRef string              `mapstructure:"sourceRef" json:"sourceRef,omitempty"`
	TopN      int                 `mapstructure:"topN" json:"topN,omitempty"`
	Filters   types.PostingFilter `mapstructure:"filters" json:"filters,omitempty"`
}

// NotificationPayload is the payload of a notification task.
type NotificationPayload struct {
	SubjectID string         `mapstructure:"subjectId" json:"subjectId"`
	SourceRef string         `mapstructure:"sourceRef" json:"sourceRef,omitempty"`
	Event     string         `mapstructure:"event" json:"event"`
	UserID    string         `mapstructure:"userId" json:"userId,omitempty"`
	Data      map[string]any `mapstructure:"data" json:"data,omitempty"`
}

// AnalyticsPayload is the payload of an analytics task.
type AnalyticsPayload struct {
	SubjectID string    `mapstructure:"subjectId" json:"subjectId"`
	SourceRef string    `mapstructure:"sourceRef" json:"sourceRef,omitempty"`
	Since     time.Time `mapstructure:"since" json:"since,omitempty"`
}

// decodePayload decodes a raw task payload into out.
func decodePayload(raw json.RawMessage, out any) error {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			emptyStringToZeroTime,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create payload decoder: %w", err)
	}
	if err := decoder.Decode(generic); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// emptyStringToZeroTime lets an empty "since" decode as the zero time.
func emptyStringToZeroTime(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf(time.Time{}) && data.(string) == "" {
		return time.Time{}, nil
	}
	return data, nil
}

// subjectID reads subjectId from a raw payload without decoding it.
func subjectID(raw json.RawMessage) string {
	return gjson.GetBytes(raw, "subjectId").String()
}
