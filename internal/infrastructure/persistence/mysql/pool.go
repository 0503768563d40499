package mysql

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/xiebiao/webshop/internal/pipeline"
)

// TxPool 基于GORM事务的连接池适配
// 设计说明：
// 1. Acquire开启事务：Begin会从底层sql.DB独占一条物理连接，
//    整条写管道（约束查询+最终写）都钉在这条连接上，
//    观察同一事务快照
// 2. Release统一Rollback：会话已Commit时Rollback是幂等的no-op
//    （gorm返回ErrInvalidTransaction，直接吞掉），
//    未Commit时整个事务回滚——管道中途失败不留半成品写入
// 3. 池本身的排队、上限由sql.DB的MaxOpenConns管理
type TxPool struct {
	db *gorm.DB
}

// NewTxPool 创建事务池
func NewTxPool(db *gorm.DB) *TxPool {
	return &TxPool{db: db}
}

// Acquire 实现pipeline.Pool：开启事务（独占一条物理连接）
func (p *TxPool) Acquire(ctx context.Context) (pipeline.Conn, error) {
	tx := p.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// Release 实现pipeline.Pool：回滚并归还连接
// 已提交的事务回滚是no-op，这让引擎可以无条件地在defer里调用
func (p *TxPool) Release(conn pipeline.Conn) {
	tx, ok := conn.(*gorm.DB)
	if !ok {
		return
	}
	if err := tx.Rollback().Error; err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
		// 连接即将归还，回滚失败无处上抛，只能记录
		log.Printf("释放连接时回滚失败: %v", err)
	}
}
