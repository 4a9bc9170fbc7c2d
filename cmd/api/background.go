package main

import (
	"fmt"
)

// background runs fn off the request goroutine. A panic is logged instead
// of taking the process down. run waits for these on shutdown.
func (app *application) background(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				app.logger.Errorw("background task panicked", "error", fmt.Sprint(err))
			}
		}()
		fn()
	}()
}
