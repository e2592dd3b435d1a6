package testutil

import (
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/opencaptable/ocp-solana/captable/accounts"
	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/opencaptable/ocp-solana/captable/amount"
	"github.com/opencaptable/ocp-solana/captable/events"
	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/opencaptable/ocp-solana/captable/instruction"
)

// programError is an Anchor error raised by the emulated program.
type programError struct {
	name    string
	number  int
	message string
}

func (e *programError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.name, e.number, e.message)
}

var (
	errFallbackNotFound    = &programError{"InstructionFallbackNotFound", 101, "Fallback functions are not supported"}
	errDidNotDeserialize   = &programError{"InstructionDidNotDeserialize", 102, "The program could not deserialize the given instruction"}
	errConstraintSeeds     = &programError{"ConstraintSeeds", 2006, "A seeds constraint was violated"}
	errDiscriminator       = &programError{"AccountDiscriminatorMismatch", 3002, "8 byte discriminator did not match what was expected"}
	errNotEnoughKeys       = &programError{"AccountNotEnoughKeys", 3005, "Not enough account keys given to the instruction"}
	errNotInitialized      = &programError{"AccountNotInitialized", 3012, "The program expected this account to be already initialized"}
	errStockInsufficient   = &programError{"InsufficientShares", 6000, "Insufficient shares available for issuance"}
	errStockQuantity       = &programError{"InvalidQuantity", 6001, "Quantity must be greater than zero"}
	errStockPrice          = &programError{"InvalidSharePrice", 6002, "Share price must be greater than zero"}
	errStockClassCount     = &programError{"InvalidStockClassCount", 6000, "Stock class count must be greater than zero"}
	errConvertibleAmount   = &programError{"InvalidAmount", 6000, "Investment amount must be greater than zero"}
	errWarrantQuantity     = &programError{"InvalidQuantity", 6000, "Quantity must be greater than zero"}
	errEquityQuantity      = &programError{"InvalidQuantity", 6000, "Quantity must be greater than zero"}
	errEquityInsufficient  = &programError{"InsufficientShares", 6001, "Insufficient shares available"}
	errEquityMismatch      = &programError{"QuantityMismatch", 6002, "Stock position quantity must match exercise quantity"}
	errEquityStakeholder   = &programError{"InvalidStakeholder", 6003, "Stock position must belong to same stakeholder"}
	errProgramNotFound     = errors.New("attempt to load a program that does not exist")
	errAccountAlreadyInUse = errors.New("account already in use")
)

type failure struct {
	text   string
	status any
}

type execution struct {
	l        *Ledger
	metas    []*solana.AccountMeta
	writes   map[solana.PublicKey][]byte
	logs     []string
	issuerID ident.BinaryID
}

func (e *execution) log(format string, args ...any) {
	e.logs = append(e.logs, fmt.Sprintf(format, args...))
}

// failure appends the log lines of a failed invocation and builds the
// transaction error the node would report.
func (e *execution) failure(err error) failure {
	pid := e.l.programID

	var pe *programError
	switch {
	case errors.As(err, &pe):
		e.log("Program log: AnchorError occurred. Error Code: %s. Error Number: %d. Error Message: %s.", pe.name, pe.number, pe.message)
		e.log("Program %s consumed 4000 of 200000 compute units", pid)
		e.log("Program %s failed: custom program error: 0x%x", pid, pe.number)
		return failure{
			text:   fmt.Sprintf("custom program error: 0x%x", pe.number),
			status: map[string]any{"InstructionError": []any{float64(0), map[string]any{"Custom": float64(pe.number)}}},
		}
	case errors.Is(err, errAccountAlreadyInUse):
		e.log("Program %s invoke [2]", solana.SystemProgramID)
		e.log("%s", strings.TrimPrefix(err.Error(), errAccountAlreadyInUse.Error()+": "))
		e.log("Program %s failed: custom program error: 0x0", solana.SystemProgramID)
		e.log("Program %s consumed 6000 of 200000 compute units", pid)
		e.log("Program %s failed: custom program error: 0x0", pid)
		return failure{
			text:   "custom program error: 0x0",
			status: map[string]any{"InstructionError": []any{float64(0), map[string]any{"Custom": float64(0)}}},
		}
	default:
		return failure{
			text:   err.Error(),
			status: "ProgramAccountNotFound",
		}
	}
}

type handler func(e *execution, args []byte) error

var handlers = map[bin.TypeID]handler{
	instruction.Discriminator(instruction.InitializeIssuer):           initializeIssuer,
	instruction.Discriminator(instruction.AdjustAuthorizedShares):     adjustAuthorizedShares,
	instruction.Discriminator(instruction.CreateStockClass):           createStockClass,
	instruction.Discriminator(instruction.AdjustStockClassShares):     adjustStockClassShares,
	instruction.Discriminator(instruction.CreateStakeholder):          createStakeholder,
	instruction.Discriminator(instruction.CreateStockPlan):            createStockPlan,
	instruction.Discriminator(instruction.AdjustStockPlanShares):      adjustStockPlanShares,
	instruction.Discriminator(instruction.IssueStock):                 issueStock,
	instruction.Discriminator(instruction.IssueConvertible):           issueConvertible,
	instruction.Discriminator(instruction.IssueEquityCompensation):    issueEquityCompensation,
	instruction.Discriminator(instruction.ExerciseEquityCompensation): exerciseEquityCompensation,
	instruction.Discriminator(instruction.IssueWarrant):               issueWarrant,
}

var handlerNames = func() map[bin.TypeID]string {
	m := map[bin.TypeID]string{}
	for _, name := range []string{
		instruction.InitializeIssuer,
		instruction.AdjustAuthorizedShares,
		instruction.CreateStockClass,
		instruction.AdjustStockClassShares,
		instruction.CreateStakeholder,
		instruction.CreateStockPlan,
		instruction.AdjustStockPlanShares,
		instruction.IssueStock,
		instruction.IssueConvertible,
		instruction.IssueEquityCompensation,
		instruction.ExerciseEquityCompensation,
		instruction.IssueWarrant,
	} {
		m[instruction.Discriminator(name)] = name
	}
	return m
}()

func pascal(snake string) string {
	parts := strings.Split(snake, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

// run executes every instruction of tx against a staged copy of the
// ledger. Nothing is written unless all of them succeed.
func (l *Ledger) run(tx *solana.Transaction) (*execution, error) {
	e := &execution{l: l, writes: map[solana.PublicKey][]byte{}}

	for _, ci := range tx.Message.Instructions {
		pid, err := tx.Message.ResolveProgramIDIndex(ci.ProgramIDIndex)
		if err != nil || !pid.Equals(l.programID) {
			return e, errProgramNotFound
		}
		e.metas, err = ci.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return e, errNotEnoughKeys
		}

		e.log("Program %s invoke [1]", pid)

		data := []byte(ci.Data)
		if len(data) < 8 {
			return e, errFallbackNotFound
		}
		disc := bin.TypeIDFromBytes(data[:8])
		h, ok := handlers[disc]
		if !ok {
			return e, errFallbackNotFound
		}
		e.log("Program log: Instruction: %s", pascal(handlerNames[disc]))

		err = h(e, data[8:])
		if err != nil {
			return e, err
		}

		e.log("Program %s consumed 9000 of 200000 compute units", pid)
		e.log("Program %s success", pid)
	}
	return e, nil
}

func decodeArgs(data []byte, v any) error {
	dec := bin.NewBorshDecoder(data)
	err := dec.Decode(v)
	if err != nil || dec.HasRemaining() {
		return errDidNotDeserialize
	}
	return nil
}

func (e *execution) key(i int) (solana.PublicKey, error) {
	if i >= len(e.metas) {
		return solana.PublicKey{}, errNotEnoughKeys
	}
	return e.metas[i].PublicKey, nil
}

func (e *execution) read(pk solana.PublicKey) ([]byte, bool) {
	if data, ok := e.writes[pk]; ok {
		return data, true
	}
	data, ok := e.l.accounts[pk]
	return data, ok
}

func load[T any](e *execution, i int, decode func([]byte) (T, error)) (solana.PublicKey, T, error) {
	var zero T
	pk, err := e.key(i)
	if err != nil {
		return pk, zero, err
	}
	data, ok := e.read(pk)
	if !ok {
		return pk, zero, errNotInitialized
	}
	v, err := decode(data)
	if err != nil {
		return pk, zero, errDiscriminator
	}
	return pk, v, nil
}

// create checks account i against its expected address and that it does
// not exist yet.
func (e *execution) create(i int, want address.Derived, derr error) (solana.PublicKey, error) {
	pk, err := e.key(i)
	if err != nil {
		return pk, err
	}
	if derr != nil || !pk.Equals(want.Address) {
		return pk, errConstraintSeeds
	}
	if _, exists := e.read(pk); exists {
		return pk, fmt.Errorf("%w: Allocate: account Address { address: %s, base: None } already in use", errAccountAlreadyInUse, pk)
	}
	return pk, nil
}

type encoder interface {
	Encode() ([]byte, error)
}

func (e *execution) store(pk solana.PublicKey, rec encoder) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	e.writes[pk] = data
	return nil
}

func (e *execution) emit(s events.Schema, values map[string]string) error {
	ev, err := events.EncodeEvent(s, e.issuerID, values)
	if err != nil {
		return err
	}
	e.logs = append(e.logs, ev.Encode())
	return nil
}

func (e *execution) loadIssuer(i int) (solana.PublicKey, *accounts.Issuer, error) {
	pk, issuer, err := load(e, i, accounts.DecodeIssuer)
	if err != nil {
		return pk, nil, err
	}
	e.issuerID = ident.MustBinaryID(issuer.ID)
	return pk, issuer, nil
}

func wire(s string) uint64 {
	v, _ := amount.Wire(s)
	return v
}

func uuid(id ident.BinaryID) string {
	return ident.ToUUID(id)
}

type idAmountArgs struct {
	ID     ident.BinaryID
	Amount uint64
}

type amountArgs struct {
	Amount uint64
}

type idArgs struct {
	ID ident.BinaryID
}

func initializeIssuer(e *execution, data []byte) error {
	var args idAmountArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	want, derr := e.l.deriver.Issuer(args.ID)
	pk, err := e.create(0, want, derr)
	if err != nil {
		return err
	}

	e.log("Program log: Issuer initialized with id: %v", args.ID[:])
	return e.store(pk, &accounts.Issuer{
		ID:               uuid(args.ID),
		SharesIssued:     amount.FromWire(0),
		SharesAuthorized: amount.FromWire(args.Amount),
	})
}

func adjustAuthorizedShares(e *execution, data []byte) error {
	var args amountArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	pk, issuer, err := e.loadIssuer(0)
	if err != nil {
		return err
	}

	issuer.SharesAuthorized = amount.FromWire(args.Amount)
	e.log("Program log: Adjusted authorized shares to: %d", args.Amount)
	return e.store(pk, issuer)
}

type createStockClassArgs struct {
	ID                      ident.BinaryID
	ClassType               string
	PricePerShare           uint64
	InitialSharesAuthorized uint64
}

func createStockClass(e *execution, data []byte) error {
	var args createStockClassArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	if _, _, err := e.loadIssuer(0); err != nil {
		return err
	}
	want, derr := e.l.deriver.StockClass(args.ID)
	pk, err := e.create(1, want, derr)
	if err != nil {
		return err
	}

	err = e.store(pk, &accounts.StockClass{
		ID:               uuid(args.ID),
		ClassType:        args.ClassType,
		PricePerShare:    amount.FromWire(args.PricePerShare),
		SharesIssued:     amount.FromWire(0),
		SharesAuthorized: amount.FromWire(args.InitialSharesAuthorized),
	})
	if err != nil {
		return err
	}
	return e.emit(events.SchemaStockClassCreated, map[string]string{
		"id":                      uuid(args.ID),
		"classType":               args.ClassType,
		"pricePerShare":           amount.FromWire(args.PricePerShare),
		"initialSharesAuthorized": amount.FromWire(args.InitialSharesAuthorized),
		"issuerId":                uuid(e.issuerID),
	})
}

func adjustStockClassShares(e *execution, data []byte) error {
	var args amountArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	if _, _, err := e.loadIssuer(0); err != nil {
		return err
	}
	pk, class, err := load(e, 1, accounts.DecodeStockClass)
	if err != nil {
		return err
	}

	class.SharesAuthorized = amount.FromWire(args.Amount)
	if err := e.store(pk, class); err != nil {
		return err
	}
	return e.emit(events.SchemaStockClassSharesAdjusted, map[string]string{
		"stockClassId":        class.ID,
		"newSharesAuthorized": class.SharesAuthorized,
		"issuerId":            uuid(e.issuerID),
	})
}

func createStakeholder(e *execution, data []byte) error {
	var args idArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	if _, _, err := e.loadIssuer(0); err != nil {
		return err
	}
	want, derr := e.l.deriver.Stakeholder(args.ID)
	pk, err := e.create(1, want, derr)
	if err != nil {
		return err
	}

	if err := e.store(pk, &accounts.Stakeholder{ID: uuid(args.ID)}); err != nil {
		return err
	}
	err = e.emit(events.SchemaStakeholderCreated, map[string]string{
		"id":       uuid(args.ID),
		"issuerId": uuid(e.issuerID),
	})
	if err != nil {
		return err
	}
	e.log("Program log: Stakeholder created with id: %v", args.ID[:])
	return nil
}

type createStockPlanArgs struct {
	ID             ident.BinaryID
	StockClassIDs  []ident.BinaryID
	SharesReserved uint64
}

func createStockPlan(e *execution, data []byte) error {
	var args createStockPlanArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	if _, _, err := e.loadIssuer(0); err != nil {
		return err
	}
	want, derr := e.l.deriver.StockPlan(args.ID)
	pk, err := e.create(1, want, derr)
	if err != nil {
		return err
	}
	if _, _, err := load(e, 2, accounts.DecodeStockClass); err != nil {
		return err
	}
	if len(args.StockClassIDs) == 0 {
		return errStockClassCount
	}

	classes := make([]string, len(args.StockClassIDs))
	for i, id := range args.StockClassIDs {
		classes[i] = uuid(id)
	}
	err = e.store(pk, &accounts.StockPlan{
		ID:             uuid(args.ID),
		StockClassIDs:  classes,
		SharesReserved: amount.FromWire(args.SharesReserved),
	})
	if err != nil {
		return err
	}
	return e.emit(events.SchemaStockPlanCreated, map[string]string{
		"id":             uuid(args.ID),
		"sharesReserved": amount.FromWire(args.SharesReserved),
		"issuerId":       uuid(e.issuerID),
	})
}

func adjustStockPlanShares(e *execution, data []byte) error {
	var args amountArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	if _, _, err := e.loadIssuer(0); err != nil {
		return err
	}
	pk, plan, err := load(e, 1, accounts.DecodeStockPlan)
	if err != nil {
		return err
	}

	plan.SharesReserved = amount.FromWire(args.Amount)
	if err := e.store(pk, plan); err != nil {
		return err
	}
	return e.emit(events.SchemaStockPlanSharesAdjusted, map[string]string{
		"id":                plan.ID,
		"newSharesReserved": plan.SharesReserved,
	})
}

type issueStockArgs struct {
	SecurityID ident.BinaryID
	Quantity   uint64
	SharePrice uint64
}

func issueStock(e *execution, data []byte) error {
	var args issueStockArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	classPK, class, err := load(e, 0, accounts.DecodeStockClass)
	if err != nil {
		return err
	}
	if _, _, err := e.loadIssuer(1); err != nil {
		return err
	}
	_, stakeholder, err := load(e, 2, accounts.DecodeStakeholder)
	if err != nil {
		return err
	}
	want, derr := e.l.deriver.StockPosition(ident.MustBinaryID(stakeholder.ID), args.SecurityID)
	pk, err := e.create(3, want, derr)
	if err != nil {
		return err
	}

	if args.Quantity == 0 {
		return errStockQuantity
	}
	if args.SharePrice == 0 {
		return errStockPrice
	}
	issued := wire(class.SharesIssued)
	if issued+args.Quantity < issued || issued+args.Quantity > wire(class.SharesAuthorized) {
		return errStockInsufficient
	}

	err = e.store(pk, &accounts.StockPosition{
		StakeholderID: stakeholder.ID,
		StockClassID:  class.ID,
		SecurityID:    uuid(args.SecurityID),
		Quantity:      amount.FromWire(args.Quantity),
		SharePrice:    amount.FromWire(args.SharePrice),
	})
	if err != nil {
		return err
	}
	class.SharesIssued = amount.FromWire(issued + args.Quantity)
	if err := e.store(classPK, class); err != nil {
		return err
	}

	return e.emit(events.SchemaStockIssuance, map[string]string{
		"stockClassId":  class.ID,
		"securityId":    uuid(args.SecurityID),
		"stakeholderId": stakeholder.ID,
		"quantity":      amount.FromWire(args.Quantity),
		"sharePrice":    amount.FromWire(args.SharePrice),
		"issuerId":      uuid(e.issuerID),
	})
}

type securityAmountArgs struct {
	SecurityID ident.BinaryID
	Amount     uint64
}

func issueConvertible(e *execution, data []byte) error {
	var args securityAmountArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	if _, _, err := e.loadIssuer(0); err != nil {
		return err
	}
	_, stakeholder, err := load(e, 1, accounts.DecodeStakeholder)
	if err != nil {
		return err
	}
	want, derr := e.l.deriver.ConvertiblePosition(ident.MustBinaryID(stakeholder.ID), args.SecurityID)
	pk, err := e.create(2, want, derr)
	if err != nil {
		return err
	}
	if args.Amount == 0 {
		return errConvertibleAmount
	}

	err = e.store(pk, &accounts.ConvertiblePosition{
		StakeholderID:    stakeholder.ID,
		SecurityID:       uuid(args.SecurityID),
		InvestmentAmount: amount.FromWire(args.Amount),
	})
	if err != nil {
		return err
	}
	return e.emit(events.SchemaConvertibleIssuance, map[string]string{
		"stakeholderId":    stakeholder.ID,
		"securityId":       uuid(args.SecurityID),
		"investmentAmount": amount.FromWire(args.Amount),
	})
}

func issueEquityCompensation(e *execution, data []byte) error {
	var args securityAmountArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	if _, _, err := e.loadIssuer(0); err != nil {
		return err
	}
	_, stakeholder, err := load(e, 1, accounts.DecodeStakeholder)
	if err != nil {
		return err
	}
	_, class, err := load(e, 2, accounts.DecodeStockClass)
	if err != nil {
		return err
	}

	var planID ident.BinaryID
	planKey, err := e.key(3)
	if err != nil {
		return err
	}
	if !planKey.Equals(e.l.programID) {
		_, plan, err := load(e, 3, accounts.DecodeStockPlan)
		if err != nil {
			return err
		}
		planID = ident.MustBinaryID(plan.ID)
	}

	want, derr := e.l.deriver.EquityCompensationPosition(args.SecurityID, ident.MustBinaryID(class.ID), ident.MustBinaryID(stakeholder.ID))
	pk, err := e.create(4, want, derr)
	if err != nil {
		return err
	}
	if args.Amount == 0 {
		return errEquityQuantity
	}

	position := &accounts.EquityCompensationPosition{
		SecurityID:    uuid(args.SecurityID),
		StockClassID:  class.ID,
		StakeholderID: stakeholder.ID,
		Quantity:      amount.FromWire(args.Amount),
	}
	if planID != (ident.BinaryID{}) {
		position.StockPlanID = uuid(planID)
	}
	if err := e.store(pk, position); err != nil {
		return err
	}
	return e.emit(events.SchemaEquityCompensationIssuance, map[string]string{
		"securityId":    uuid(args.SecurityID),
		"stakeholderId": stakeholder.ID,
		"stockClassId":  class.ID,
		"stockPlanId":   uuid(planID),
		"quantity":      amount.FromWire(args.Amount),
	})
}

func exerciseEquityCompensation(e *execution, data []byte) error {
	var args amountArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	if _, _, err := e.loadIssuer(0); err != nil {
		return err
	}
	equityPK, equity, err := load(e, 1, accounts.DecodeEquityCompensationPosition)
	if err != nil {
		return err
	}
	_, stock, err := load(e, 2, accounts.DecodeStockPosition)
	if err != nil {
		return err
	}

	available := wire(equity.Quantity)
	switch {
	case args.Amount == 0:
		return errEquityQuantity
	case available < args.Amount:
		return errEquityInsufficient
	case wire(stock.Quantity) != args.Amount:
		return errEquityMismatch
	case stock.StakeholderID != equity.StakeholderID:
		return errEquityStakeholder
	}

	equity.Quantity = amount.FromWire(available - args.Amount)
	if err := e.store(equityPK, equity); err != nil {
		return err
	}
	return e.emit(events.SchemaEquityCompensationExercise, map[string]string{
		"equityCompSecurityId":     equity.SecurityID,
		"resultingStockSecurityId": stock.SecurityID,
		"quantity":                 amount.FromWire(args.Amount),
	})
}

func issueWarrant(e *execution, data []byte) error {
	var args securityAmountArgs
	if err := decodeArgs(data, &args); err != nil {
		return err
	}
	if _, _, err := e.loadIssuer(0); err != nil {
		return err
	}
	_, stakeholder, err := load(e, 1, accounts.DecodeStakeholder)
	if err != nil {
		return err
	}
	want, derr := e.l.deriver.WarrantPosition(ident.MustBinaryID(stakeholder.ID), args.SecurityID)
	pk, err := e.create(2, want, derr)
	if err != nil {
		return err
	}
	if args.Amount == 0 {
		return errWarrantQuantity
	}

	err = e.store(pk, &accounts.WarrantPosition{
		StakeholderID: stakeholder.ID,
		SecurityID:    uuid(args.SecurityID),
		Quantity:      amount.FromWire(args.Amount),
	})
	if err != nil {
		return err
	}
	return e.emit(events.SchemaWarrantIssuance, map[string]string{
		"stakeholderId": stakeholder.ID,
		"securityId":    uuid(args.SecurityID),
		"quantity":      amount.FromWire(args.Amount),
	})
}
