// Package testing provides a testing SDK for running credd components
// against an in-process credential pool daemon.
//
// The admin server, the pool client, and anything built on top of them
// talk to a pool daemon over its HTTP control API. PoolDaemon serves
// that API from inside the test process, with a fluent API for seeding
// credentials and assertions on the traffic it received.
//
// # Basic Usage
//
// Create a daemon, seed credentials, and point the code under test at
// its URL:
//
//	func TestMyAutomation(t *testing.T) {
//	    daemon := creddtest.New(t)
//	    defer daemon.Stop()
//
//	    daemon.Credential(0).WithPriority(0)
//	    daemon.Credential(1).WithPriority(10).WithAuthMethod(pool.AuthMethodIDC)
//	    daemon.Credential(2).Disabled()
//
//	    url := daemon.Start()
//
//	    client := poolclient.New(url)
//	    snap, err := client.Snapshot(context.Background())
//	    // snap.Total == 3, snap.Available == 2
//	}
//
// It also slots straight under a full admin server:
//
//	api := admin.New(port,
//	    admin.WithPool(poolclient.New(daemon.Start())),
//	    admin.WithAPIKeyDisabled(),
//	)
//
// # Seeding Credentials
//
// Credential addresses an entry by index, creating it when absent. The
// builder methods apply immediately and can run before or after Start:
//
//	daemon.Credential(1).
//	    WithPriority(10).
//	    WithAuthMethod(pool.AuthMethodIDC).
//	    WithProfileARN().
//	    WithFailures(3).
//	    ExpiringAt(time.Now().Add(time.Hour)).
//	    WithBalance("Pro", 250, 1000)
//
// The first seeded credential becomes the active one; AsCurrent or
// SetCurrentIndex override that.
//
// # Simulating Failures
//
// Per-credential balance failures and whole-daemon outages are both
// injectable:
//
//	// Balance checks for credential 0 fail with a coded error.
//	daemon.Credential(0).
//	    WithBalanceError(pool.CodeUpstreamAuth, "credential expired or invalid")
//
//	// Every endpoint answers 503 until Recover.
//	daemon.FailWith(pool.Errorf(pool.CodeUpstreamUnavailable, "daemon restarting"))
//	// ... assert degraded behavior ...
//	daemon.Recover()
//
// A daemon started with auth enabled is mirrored by RequireToken:
//
//	daemon.RequireToken("s3cret")
//	client := poolclient.New(daemon.Start(), poolclient.WithToken("s3cret"))
//
// # Assertions
//
// Verify what the code under test did to the pool. Pattern segments
// written as {name} match any value:
//
//	daemon.AssertCalled(t, "PUT", "/credentials/{index}/disabled")
//	daemon.AssertCalledTimes(t, "POST", "/pool/rotate", 2)
//	daemon.AssertNotCalled(t, "POST", "/credentials/0/reset")
//
// The raw request log is available for closer inspection:
//
//	for _, req := range daemon.Requests() {
//	    req.AssertHeader(t, "Authorization", "Bearer s3cret")
//	    req.AssertJSONField(t, "priority", float64(5))
//	}
//
// Daemon-side state is visible through Snapshot, CurrentIndex, and
// Entry, so tests can assert that mutations actually landed:
//
//	e, ok := daemon.Entry(1)
//	// ok && e.Disabled
//
// # Resetting Between Tests
//
// Reset clears credentials, balances, injected failures, and the
// request log without restarting the daemon:
//
//	daemon.Reset()
//	daemon.Credential(0) // fresh scenario
package testing
