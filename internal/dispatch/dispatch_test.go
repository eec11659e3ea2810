package dispatch

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-launch-sniper/internal/domain"
	chain "solana-launch-sniper/internal/solana"
	"solana-launch-sniper/internal/solana/stub"
)

var (
	testHash    = solana.MustHashFromBase58("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N")
	testProgram = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
	testPrio    = domain.PriorityConfig{ComputeUnitLimit: 200_000, MicroLamportsPerCU: 7_500}
)

func newSigner(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func memoIx(data string) solana.Instruction {
	return solana.NewInstruction(testProgram, solana.AccountMetaSlice{}, []byte(data))
}

func decodeSent(t *testing.T, txBase64 string) *solana.Transaction {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	require.NoError(t, err)
	tx, err := solana.TransactionFromBytes(raw)
	require.NoError(t, err)
	return tx
}

func assertComputeBudgetPrefix(t *testing.T, tx *solana.Transaction, prio domain.PriorityConfig) {
	t.Helper()
	require.GreaterOrEqual(t, len(tx.Message.Instructions), 2)

	limit := tx.Message.Instructions[0]
	assert.True(t, tx.Message.AccountKeys[limit.ProgramIDIndex].Equals(solana.ComputeBudget))
	require.Len(t, limit.Data, 5)
	assert.Equal(t, byte(2), limit.Data[0])
	assert.Equal(t, prio.ComputeUnitLimit, binary.LittleEndian.Uint32(limit.Data[1:]))

	price := tx.Message.Instructions[1]
	assert.True(t, tx.Message.AccountKeys[price.ProgramIDIndex].Equals(solana.ComputeBudget))
	require.Len(t, price.Data, 9)
	assert.Equal(t, byte(3), price.Data[0])
	assert.Equal(t, prio.MicroLamportsPerCU, binary.LittleEndian.Uint64(price.Data[1:]))
}

func TestBuildPrependsComputeBudget(t *testing.T) {
	signer := newSigner(t)

	tx, err := Build(signer, []solana.Instruction{memoIx("a"), memoIx("b")}, testHash, testPrio)
	require.NoError(t, err)

	require.Len(t, tx.Message.Instructions, 4)
	assertComputeBudgetPrefix(t, tx, testPrio)
	assert.Equal(t, []byte("a"), []byte(tx.Message.Instructions[2].Data))
	assert.Equal(t, []byte("b"), []byte(tx.Message.Instructions[3].Data))

	assert.True(t, tx.Message.AccountKeys[0].Equals(signer.PublicKey()), "signer is fee payer")
	assert.Equal(t, testHash, tx.Message.RecentBlockhash)
	require.Len(t, tx.Signatures, 1)
	assert.False(t, tx.Signatures[0].IsZero())
}

func TestBuildWithNoCallerInstructions(t *testing.T) {
	tx, err := Build(newSigner(t), nil, testHash, testPrio)
	require.NoError(t, err)

	require.Len(t, tx.Message.Instructions, 2)
	assertComputeBudgetPrefix(t, tx, testPrio)
}

func TestBuildRejectsEmptyBlockhash(t *testing.T) {
	_, err := Build(newSigner(t), nil, solana.Hash{}, testPrio)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSigning)

	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, StageSign, de.Stage)
}

func TestBuildRejectsMissingSigner(t *testing.T) {
	_, err := Build(nil, nil, testHash, testPrio)
	assert.ErrorIs(t, err, ErrSigning)
}

func TestFireAndForgetSendOptions(t *testing.T) {
	rpc := stub.NewChainClient()
	d := New(rpc, Options{})
	signer := newSigner(t)

	sig, err := d.Dispatch(context.Background(), signer, []solana.Instruction{memoIx("x")}, testHash, testPrio, ModeFireAndForget)
	require.NoError(t, err)

	require.Equal(t, 1, rpc.SentCount())
	sent := rpc.Sent[0]
	assert.True(t, sent.Opts.SkipPreflight)
	assert.Equal(t, chain.CommitmentProcessed, sent.Opts.PreflightCommitment)
	require.NotNil(t, sent.Opts.MaxRetries)
	assert.Equal(t, uint(3), *sent.Opts.MaxRetries)

	tx := decodeSent(t, sent.TxBase64)
	assertComputeBudgetPrefix(t, tx, testPrio)
	assert.Equal(t, tx.Signatures[0], sig)
}

func TestConfirmModeWaitsForProcessed(t *testing.T) {
	rpc := stub.NewChainClient()
	rpc.SendFunc = func(txBase64 string, _ chain.SendOptions) (string, error) {
		sig := decodeSent(t, txBase64).Signatures[0].String()
		rpc.SetStatus(sig, &chain.SignatureStatus{ConfirmationStatus: chain.CommitmentProcessed})
		return sig, nil
	}
	d := New(rpc, Options{PollInterval: 5 * time.Millisecond, ConfirmTimeout: time.Second})

	sig, err := d.Dispatch(context.Background(), newSigner(t), nil, testHash, testPrio, ModeConfirm)
	require.NoError(t, err)
	assert.False(t, sig.IsZero())

	require.Equal(t, 1, rpc.SentCount())
	assert.False(t, rpc.Sent[0].Opts.SkipPreflight)
	assert.Equal(t, chain.CommitmentProcessed, rpc.Sent[0].Opts.PreflightCommitment)
}

func TestConfirmModeOnChainFailure(t *testing.T) {
	rpc := stub.NewChainClient()
	rpc.SendFunc = func(txBase64 string, _ chain.SendOptions) (string, error) {
		sig := decodeSent(t, txBase64).Signatures[0].String()
		rpc.SetStatus(sig, &chain.SignatureStatus{
			ConfirmationStatus: chain.CommitmentProcessed,
			Err:                map[string]interface{}{"InstructionError": []interface{}{2, "Custom"}},
		})
		return sig, nil
	}
	d := New(rpc, Options{PollInterval: 5 * time.Millisecond, ConfirmTimeout: time.Second})

	_, err := d.Dispatch(context.Background(), newSigner(t), nil, testHash, testPrio, ModeConfirm)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmission)

	var txErr *chain.TransactionError
	assert.True(t, errors.As(err, &txErr))

	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, StageConfirm, de.Stage)
}

func TestConfirmModeTimeout(t *testing.T) {
	rpc := stub.NewChainClient()
	d := New(rpc, Options{PollInterval: 5 * time.Millisecond, ConfirmTimeout: 30 * time.Millisecond})

	_, err := d.Dispatch(context.Background(), newSigner(t), nil, testHash, testPrio, ModeConfirm)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmission)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmissionErrorPreservesCause(t *testing.T) {
	cause := &chain.RPCError{Code: -32002, Message: "Blockhash not found"}
	rpc := stub.NewChainClient()
	rpc.SendErr = cause
	d := New(rpc, Options{})

	_, err := d.Dispatch(context.Background(), newSigner(t), nil, testHash, testPrio, ModeFireAndForget)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmission)

	var rpcErr *chain.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32002, rpcErr.Code)
}

func TestSigningErrorSkipsSubmission(t *testing.T) {
	rpc := stub.NewChainClient()
	d := New(rpc, Options{})

	_, err := d.Dispatch(context.Background(), newSigner(t), nil, solana.Hash{}, testPrio, ModeFireAndForget)
	assert.ErrorIs(t, err, ErrSigning)
	assert.Zero(t, rpc.SentCount())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("confirm")
	require.NoError(t, err)
	assert.Equal(t, ModeConfirm, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFireAndForget, m)

	_, err = ParseMode("yolo")
	assert.Error(t, err)
}
