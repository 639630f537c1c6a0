// Package calendar is the gateway to the Google Calendar v3 API.
//
// A Client lists upcoming events, queries free/busy information, finds free
// slots and creates events on a single calendar (the user's primary one by
// default). All times sent to the API carry the client's configured zone and
// all times returned are converted into it.
//
// Failed API calls surface as *APIError; arguments rejected before any call
// wrap ErrInvalidInput. Nothing is retried.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, httpClient, calendar.Options{Location: loc})
//	if err != nil {
//	    return err
//	}
//	events, err := client.ListUpcoming(ctx, 10)
package calendar
