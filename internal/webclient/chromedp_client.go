package webclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/provascan/provascan/internal/logging"
)

// ChromeDPClient fetches via a headless browser and returns a rendered
// screenshot of the page as PNG bytes. It serves as the rendered pixel
// source: media that plain fetching cannot decode (cross-origin protected,
// script-assembled, CSS-composited) still yields a sampleable surface.
type ChromeDPClient struct {
	cfg       Config
	idleAfter time.Duration
	allocCtx  context.Context
	cancel    context.CancelFunc
	logger    logging.Logger
}

func NewChromeDPClient(cfg Config, idleAfter time.Duration, logger logging.Logger, opts ...chromedp.ExecAllocatorOption) (*ChromeDPClient, error) {
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !cfg.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	allocOpts = append(allocOpts, opts...)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	componentLogger := logging.OrNop(logger).With(logging.Field{Key: "backend", Value: BackendChromeDP})
	componentLogger.Info("created chromedp webclient",
		logging.Field{Key: "idle_after", Value: idleAfter.String()})

	return &ChromeDPClient{
		cfg:       cfg,
		idleAfter: idleAfter,
		allocCtx:  allocCtx,
		cancel:    cancel,
		logger:    componentLogger,
	}, nil
}

// waitNetworkIdle signals once no network request has been in flight for
// idleAfter. Keeps screenshots from racing lazy-loaded media.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timer *time.Timer
	var timerMutex sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMutex.Lock()
		defer timerMutex.Unlock()

		if timer != nil {
			timer.Stop()
		}

		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() { close(idleChan) })
			}
		})
	}
	startTimer()

	chromedp.ListenTarget(ctx,
		func(ev any) {
			switch ev.(type) {
			case *network.EventRequestWillBeSent:
				atomic.AddInt32(&activeReqs, 1)
			case *network.EventLoadingFinished, *network.EventLoadingFailed:
				if atomic.AddInt32(&activeReqs, -1) <= 0 {
					startTimer()
				}
			}
		})

	return idleChan
}

// Do navigates to req.URL, waits for the network to go idle and screenshots
// the rendered page. The response body is always PNG.
func (cdc *ChromeDPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	tabCtx, cancel := chromedp.NewContext(cdc.allocCtx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelTimeout context.CancelFunc
		tabCtx, cancelTimeout = context.WithDeadline(tabCtx, deadline)
		defer cancelTimeout()
	} else {
		var cancelTimeout context.CancelFunc
		tabCtx, cancelTimeout = context.WithTimeout(tabCtx, cdc.cfg.timeout())
		defer cancelTimeout()
	}

	waitIdleChan := waitNetworkIdle(tabCtx, cdc.idleAfter)

	if err := chromedp.Run(tabCtx, chromedp.Navigate(req.URL)); err != nil {
		return nil, fmt.Errorf("chromedp navigate %s: %w", req.URL, err)
	}

	select {
	case <-waitIdleChan:
	case <-tabCtx.Done():
		return nil, fmt.Errorf("chromedp wait for idle: %w", tabCtx.Err())
	}

	var shot []byte
	if err := chromedp.Run(tabCtx, chromedp.FullScreenshot(&shot, 90)); err != nil {
		return nil, fmt.Errorf("chromedp screenshot: %w", err)
	}

	cdc.logger.Debug("captured rendered screenshot",
		logging.Field{Key: "url", Value: req.URL},
		logging.Field{Key: "bytes", Value: len(shot)})

	headers := http.Header{}
	headers.Set("Content-Type", "image/png")

	return &Response{
		Request:    req,
		Headers:    headers,
		Body:       shot,
		StatusCode: http.StatusOK,
		FetchedAt:  time.Now(),
	}, nil
}

func (cdc *ChromeDPClient) Close() error {
	cdc.logger.Info("closing chromedp webclient")
	cdc.cancel()
	return nil
}
