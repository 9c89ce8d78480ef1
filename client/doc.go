// Package client provides the client side session liveness monitor.
//
// A KeepAliveManager periodically reads the server state variable (Server_ServerStatus_State) of a
// session so the server does not time the session out, and to detect an unresponsive server.
//
// The check is skipped when other traffic recently proved the server alive, and at most one check is
// outstanding at any time. A successful check raises a keepalive event with the last known server state
// and the number of successful checks. A failed check (transport error, bad status or missing value)
// raises a failure event and forces the secure channel to break, so the connection layer reconnects.
// The monitor never reconnects by itself.
//
// Example:
//
//	mgr, err := client.NewKeepAliveManager(session, channel,
//		client.WithKeepAliveLogger(logger.GetLogger()),
//		client.WithCheckTimeout(5*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//	mgr.AddFailureHandler(func() { log.Println("server is not responding") })
//	if err := mgr.Start(0); err != nil {
//		return err
//	}
//	defer mgr.Stop()
package client
