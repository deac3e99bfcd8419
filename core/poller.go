package core

// DefaultCheckInterval is the driver poll period in milliseconds.
const DefaultCheckInterval = 250

// StatusQuerier reads the DRV_STATUS word of one driver. The call blocks
// for at most one short bus transaction.
type StatusQuerier interface {
	QueryDriverStatus(driver DriverIndex) (RawStatusWord, error)
}

// StatusQueryFunc adapts a function to StatusQuerier.
type StatusQueryFunc func(driver DriverIndex) (RawStatusWord, error)

func (f StatusQueryFunc) QueryDriverStatus(driver DriverIndex) (RawStatusWord, error) {
	return f(driver)
}

// DriverPoller queries one driver per call in round-robin order.
type DriverPoller struct {
	numDrivers int
	noPoll     DriversBitmap
	cursor     DriverIndex

	query      StatusQuerier
	classifier *FaultClassifier

	queryErrors uint32
	log         DebugWriter
}

// NewDriverPoller creates a poller over drivers 0..numDrivers-1.
func NewDriverPoller(numDrivers int, noPoll DriversBitmap, query StatusQuerier, classifier *FaultClassifier) *DriverPoller {
	return &DriverPoller{
		numDrivers: numDrivers,
		noPoll:     noPoll,
		query:      query,
		classifier: classifier,
	}
}

// Poll queries the driver under the cursor unless it is flagged no-poll,
// then advances the cursor. It reports whether a query was issued.
// A failed query is classified as an all-clear status word.
func (p *DriverPoller) Poll(now uint32) bool {
	if p.numDrivers <= 0 {
		return false
	}
	driver := p.cursor
	polled := false
	if !p.noPoll.IsBitSet(driver) {
		status, err := p.query.QueryDriverStatus(driver)
		if err != nil {
			p.queryErrors++
			p.log.print("status query failed driver=" + itoa(int(driver)) + ": " + err.Error())
			status = 0
		}
		p.classifier.Apply(driver, status, now)
		polled = true
	}
	p.cursor++
	if int(p.cursor) >= p.numDrivers {
		p.cursor = 0
	}
	return polled
}

// Cursor returns the driver the next Poll will visit.
func (p *DriverPoller) Cursor() DriverIndex { return p.cursor }

// QueryErrors returns the number of failed status queries.
func (p *DriverPoller) QueryErrors() uint32 { return p.queryErrors }

// Reset rewinds the cursor to driver 0.
func (p *DriverPoller) Reset() {
	p.cursor = 0
	p.queryErrors = 0
}
