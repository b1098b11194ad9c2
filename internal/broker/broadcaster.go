package broker

type subscription[T any] struct {
	id      int
	channel chan T
}

// Broadcaster fans out the latest published value to every subscriber.
//
// A new subscriber immediately receives the most recent value, if any. Subscribers that fall behind skip
// intermediate values and only see the latest one, so a slow consumer never blocks the publisher. This fits live
// listings where each value is a full snapshot.
//
// The subscriber state is owned by the goroutine running Start.
type Broadcaster[T any] struct {
	stopChannel        chan struct{}
	publishChannel     chan T
	subscribeChannel   chan chan subscription[T]
	unsubscribeChannel chan int
}

// NewBroadcaster creates a new Broadcaster. Call Start in a goroutine and Stop when done.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		stopChannel:        make(chan struct{}),
		publishChannel:     make(chan T),
		subscribeChannel:   make(chan chan subscription[T]),
		unsubscribeChannel: make(chan int),
	}
}

// Start handles publish, subscribe and unsubscribe events. It blocks until Stop is called and closes all subscriber
// channels on return.
func (b *Broadcaster[T]) Start() {
	var (
		latest    T
		hasLatest bool
		nextID    int
	)
	subscribers := map[int]chan T{}
	defer func() {
		for _, c := range subscribers {
			close(c)
		}
	}()
	for {
		select {
		case <-b.stopChannel:
			return

		case reply := <-b.subscribeChannel:
			c := make(chan T, 1)
			if hasLatest {
				c <- latest
			}
			subscribers[nextID] = c
			reply <- subscription[T]{id: nextID, channel: c}
			nextID++

		case id := <-b.unsubscribeChannel:
			if c, ok := subscribers[id]; ok {
				close(c)
				delete(subscribers, id)
			}

		case value := <-b.publishChannel:
			latest, hasLatest = value, true
			for _, c := range subscribers {
				// Replace an unread value. Only this goroutine sends, so the send never blocks after the drain.
				select {
				case <-c:
				default:
				}
				c <- value
			}
		}
	}
}

// Stop the goroutine that handles the broadcaster.
func (b *Broadcaster[T]) Stop() {
	close(b.stopChannel)
}

// Publish value to all current and future subscribers. It is a no-op after Stop.
func (b *Broadcaster[T]) Publish(value T) {
	select {
	case b.publishChannel <- value:
	case <-b.stopChannel:
	}
}

// Subscribe returns a channel receiving the latest value and every later one the subscriber keeps up with. The
// channel is closed by unsubscribe or Stop.
func (b *Broadcaster[T]) Subscribe() (values <-chan T, unsubscribe func()) {
	reply := make(chan subscription[T], 1)
	select {
	case b.subscribeChannel <- reply:
	case <-b.stopChannel:
		closed := make(chan T)
		close(closed)
		return closed, func() {}
	}
	sub := <-reply
	return sub.channel, func() {
		select {
		case b.unsubscribeChannel <- sub.id:
		case <-b.stopChannel:
		}
	}
}
