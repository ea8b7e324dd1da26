package matching

import (
	"context"
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY CONTRACTS
//
// Два метода требуют настоящей атомарности и реализуются одной транзакцией
// с повторной проверкой внутри неё: CreateWithProposal (якорь
// идемпотентности генератора) и AcceptWithMutualCheck (взаимный переход
// двух независимых записей ровно один раз). Хранилище дополнительно держит
// уникальные ограничения (user_id, round_key) для батчей и
// (proposer_id, week_key, round) для предложений: проигранная гонка
// превращается в ErrBatchAlreadyExists, а не в порчу данных.
// ══════════════════════════════════════════════════════════════════════════════

// BatchRepository определяет контракт хранилища батчей.
type BatchRepository interface {
	// GetByUserAndRoundKey возвращает батч пользователя для ключа раунда.
	// Возвращает shared.ErrNotFound, если батча нет.
	GetByUserAndRoundKey(ctx context.Context, userID shared.UserID, key RoundKey) (*Batch, error)

	// CreateWithProposal атомарно создаёт батч и его единственное дочернее
	// предложение (nil, если подходящего кандидата не нашлось). Внутри
	// транзакции выполняется повторная проверка существования батча:
	// если параллельный вызов успел первым, возвращается
	// shared.ErrBatchAlreadyExists и никакие строки не записываются.
	CreateWithProposal(ctx context.Context, batch *Batch, proposal *Proposal) error
}

// AcceptOutcome - итог атомарного принятия предложения.
type AcceptOutcome struct {
	// Status - статус предложения после транзакции.
	Status ProposalStatus

	// MutualFlipped - true, если именно эта транзакция выполнила взаимный
	// переход обеих записей. При гонке двух встречных accept ровно одна
	// из транзакций получает true.
	MutualFlipped bool

	// MirrorProposalID - идентификатор зеркального предложения, если
	// переход был взаимным.
	MirrorProposalID string
}

// ProposalRepository определяет контракт хранилища предложений.
type ProposalRepository interface {
	// GetByID возвращает предложение по ID.
	// Возвращает shared.ErrProposalNotFound, если предложения нет.
	GetByID(ctx context.Context, id string) (*Proposal, error)

	// GetByProposerAndRound возвращает предложение пользователя для
	// (недели, раунда). Возвращает shared.ErrProposalNotFound, если нет.
	GetByProposerAndRound(ctx context.Context, proposerID shared.UserID, week WeekKey, round Round) (*Proposal, error)

	// GetMirror возвращает зеркальное предложение: candidate -> proposer
	// той же недели, независимо от раунда (принятие четверга может
	// довершить взаимность с принятием пятницы и наоборот).
	// Возвращает shared.ErrProposalNotFound, если зеркала нет.
	GetMirror(ctx context.Context, proposerID, candidateID shared.UserID, week WeekKey) (*Proposal, error)

	// Reject переводит предложение в rejected, штампуя acted_at и причину.
	Reject(ctx context.Context, id string, reason string) error

	// AcceptWithMutualCheck атомарно обрабатывает принятие: внутри одной
	// транзакции блокирует оба направления пары за неделю и ищет зеркальное
	// предложение со статусом accepted; если нашлось - одним условным
	// bulk-обновлением, защищённым условием status != mutual_accepted,
	// переводит обе записи в mutual_accepted; иначе переводит только это
	// предложение в accepted. Два одновременных встречных принятия обязаны
	// завершиться ровно одним взаимным переходом.
	AcceptWithMutualCheck(ctx context.Context, p *Proposal) (*AcceptOutcome, error)

	// ExpirePending одним bulk-обновлением переводит все pending-предложения
	// раунда старше cutoff в expired, штампуя acted_at. Возвращает число
	// затронутых строк; повторный запуск затрагивает ноль строк.
	ExpirePending(ctx context.Context, week WeekKey, round Round, cutoff time.Time) (int64, error)

	// RecentlyRejectedCandidateIDs возвращает кандидатов, которых
	// пользователь явно отклонил начиная с since (источник окна охлаждения).
	RecentlyRejectedCandidateIDs(ctx context.Context, proposerID shared.UserID, since time.Time) ([]shared.UserID, error)

	// AcceptedProposerIDs возвращает пользователей, чьё предложение
	// (недели, раунда) находится в статусе accepted. Дешёвый предфильтр
	// оркестратора второго раунда перед полной проверкой права на участие.
	AcceptedProposerIDs(ctx context.Context, week WeekKey, round Round) ([]shared.UserID, error)
}

// Repository объединяет хранилища подбора.
type Repository interface {
	Batches() BatchRepository
	Proposals() ProposalRepository
}
