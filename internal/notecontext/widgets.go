package notecontext

import (
	"context"
	"time"

	"notenav/internal/events"
	"notenav/internal/logging"
)

// TextEditor asks the mounted text editor of this context to identify itself.
// It returns nil when none answers within the widget query timeout.
func (c *NoteContext) TextEditor(ctx context.Context) (any, error) {
	return c.queryWidget(ctx, events.ExecuteWithTextEditorCommand)
}

func (c *NoteContext) CodeEditor(ctx context.Context) (any, error) {
	return c.queryWidget(ctx, events.ExecuteWithCodeEditorCommand)
}

// ContentElement returns the rendered content of the note, if the widget
// showing it supports that.
func (c *NoteContext) ContentElement(ctx context.Context) (any, error) {
	return c.queryWidget(ctx, events.ExecuteWithContentElement)
}

func (c *NoteContext) TypeWidget(ctx context.Context) (any, error) {
	return c.queryWidget(ctx, events.ExecuteWithTypeWidget)
}

// queryWidget issues command and waits a bounded time for a handler to
// resolve it. A widget resolving after the timeout is dropped.
func (c *NoteContext) queryWidget(ctx context.Context, command string) (any, error) {
	timeout := c.services.WidgetQueryTimeout
	if timeout <= 0 {
		timeout = DefaultWidgetQueryTimeout
	}
	resolved := make(chan any, 1)
	request := WidgetRequest{
		NtxID: c.id,
		Resolve: func(widget any) {
			select {
			case resolved <- widget:
			default:
			}
		},
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	go func() {
		if err := c.services.Bus.TriggerCommand(ctx, command, request); err != nil {
			c.logger.Warn("widget_query_failed", logging.F("command", command), logging.Err(err))
		}
	}()

	select {
	case widget := <-resolved:
		return widget, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
