package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/pkg/logger"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	_ = logger.Init()

	Convey("Given a publisher over a recording writer", t, func() {
		ctx := context.Background()
		w := &recordingWriter{}
		p := newWithWriter(w, time.Second, logger.Get())
		event := model.ScoredEvent{
			ReportID:    "rep-1",
			PlayerName:  "Sam Kerr",
			RawScore:    "0.45000",
			R90Score:    "0.45",
			XGChain:     "0.300",
			ActionCount: 4,
			Reason:      "actions",
			ScoredAt:    time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC),
		}

		Convey("When an event is published", func() {
			err := p.Publish(ctx, event)

			Convey("Then one message keyed by report id is written", func() {
				So(err, ShouldBeNil)
				So(p.Enabled(), ShouldBeTrue)
				So(len(w.msgs), ShouldEqual, 1)
				So(string(w.msgs[0].Key), ShouldEqual, "rep-1")

				var decoded model.ScoredEvent
				So(json.Unmarshal(w.msgs[0].Value, &decoded), ShouldBeNil)
				So(decoded.R90Score, ShouldEqual, "0.45")
				So(decoded.ActionCount, ShouldEqual, 4)
			})
		})

		Convey("When the writer fails", func() {
			w.err = errors.New("broker down")
			err := p.Publish(ctx, event)

			Convey("Then the error is returned with the report id", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "rep-1")
				So(errors.Is(err, w.err), ShouldBeTrue)
			})
		})

		Convey("When closed", func() {
			So(p.Close(), ShouldBeNil)
			So(w.closed, ShouldBeTrue)
		})
	})

	Convey("Given no brokers", t, func() {
		p, err := New(Config{})

		Convey("Then publishing is a no-op", func() {
			So(err, ShouldBeNil)
			So(p.Enabled(), ShouldBeFalse)
			So(p.Publish(context.Background(), model.ScoredEvent{ReportID: "x"}), ShouldBeNil)
			So(p.Close(), ShouldBeNil)
		})
	})

	Convey("Given brokers without a topic", t, func() {
		_, err := New(Config{Brokers: []string{"localhost:9092"}})

		Convey("Then construction fails", func() {
			So(errors.Is(err, ErrNoTopic), ShouldBeTrue)
		})
	})
}
