package jus

import "testing"

func TestResponseDeliveryExactlyOnceSuccess(t *testing.T) {
	delivery := NewResponseDelivery(ImmediateExecutor)

	var successes, errors, finishes int
	req := NewRequest("GET", "http://example.test/a", jsonDecode).Listen(
		func(string) { successes++ },
		func(error) { errors++ },
	)
	req.attachFinisher(func(Requester) { finishes++ })

	delivery.PostResponse(req, &NetworkResponse{StatusCode: 200, Data: []byte("ok")}, nil)

	if successes != 1 || errors != 0 || finishes != 1 {
		t.Fatalf("expected exactly one success and one finish, got successes=%d errors=%d finishes=%d", successes, errors, finishes)
	}
}

func TestResponseDeliverySkipsListenersWhenCanceled(t *testing.T) {
	delivery := NewResponseDelivery(ImmediateExecutor)

	var successes, finishes int
	req := NewRequest("GET", "http://example.test/a", jsonDecode).Listen(
		func(string) { successes++ },
		func(error) {},
	)
	req.attachFinisher(func(Requester) { finishes++ })
	req.Cancel()

	delivery.PostResponse(req, &NetworkResponse{StatusCode: 200, Data: []byte("ok")}, nil)

	if successes != 0 {
		t.Fatalf("expected canceled request to skip listeners, got %d successes", successes)
	}
	if finishes != 1 {
		t.Fatalf("expected exactly one finish even when canceled, got %d", finishes)
	}
}

func TestResponseDeliveryAfterworkSkipsFinish(t *testing.T) {
	delivery := NewResponseDelivery(ImmediateExecutor)

	var finishes, afterworkRuns int
	req := NewRequest("GET", "http://example.test/a", jsonDecode).Listen(func(string) {}, func(error) {})
	req.attachFinisher(func(Requester) { finishes++ })

	delivery.PostResponse(req, &NetworkResponse{StatusCode: 200, Data: []byte("ok")}, func() { afterworkRuns++ })

	if afterworkRuns != 1 {
		t.Fatalf("expected afterwork to run once, got %d", afterworkRuns)
	}
	if finishes != 0 {
		t.Fatalf("expected finish to be deferred when afterwork is set, got %d", finishes)
	}
}

func TestResponseDeliveryPostError(t *testing.T) {
	delivery := NewResponseDelivery(ImmediateExecutor)

	var errs int
	req := NewRequest("GET", "http://example.test/a", jsonDecode).Listen(func(string) {}, func(error) { errs++ })
	req.attachFinisher(func(Requester) {})

	delivery.PostError(req, NewTimeoutError(nil, 0))

	if errs != 1 {
		t.Fatalf("expected exactly one error delivery, got %d", errs)
	}
}
