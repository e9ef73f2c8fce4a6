package model

import (
	"sort"

	"gorm.io/datatypes"
)

// SubchunkIdentifier 标识切片所属的文档位置。
type SubchunkIdentifier struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
}

// Subchunk 对应数据库 embeddings_subchunking 表中的一个法规切片。
// 向量列在本服务中不使用，因此没有映射。
type Subchunk struct {
	ID             string                                 `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Type           string                                 `gorm:"type:varchar(64)" json:"type"`
	Text           string                                 `gorm:"type:text;not null" json:"text"`
	ParentID       string                                 `gorm:"type:varchar(255)" json:"parent_id"`
	ItemIdentifier datatypes.JSONType[SubchunkIdentifier] `gorm:"column:item_identifier;not null" json:"item_identifier"`
}

func (Subchunk) TableName() string {
	return "embeddings_subchunking"
}

// RegionData 对应 region_data 视图的一行：某区域下某文档的一个切片。
type RegionData struct {
	ID         string `gorm:"primaryKey;type:varchar(255)" json:"id"`
	DocumentID string `gorm:"type:varchar(255);index" json:"document_id"`
	Document   string `gorm:"type:varchar(255)" json:"document"`
	Title      string `gorm:"type:varchar(255)" json:"title"`
	Subtitle   string `gorm:"type:varchar(255)" json:"subtitle"`
	Chunk      string `gorm:"type:varchar(255)" json:"chunk"`
	Oposicion  string `gorm:"type:varchar(64)" json:"oposicion"`
	Region     string `gorm:"type:varchar(64)" json:"region"`
	Text       string `gorm:"type:text" json:"text"`
}

func (RegionData) TableName() string {
	return "region_data"
}

// NationalDocument 列出适用于全国的文档。
type NationalDocument struct {
	DocumentID string `gorm:"primaryKey;type:varchar(255)" json:"document_id"`
}

func (NationalDocument) TableName() string {
	return "national_documents"
}

// CatalogChunk 是切片选择器中的一个可选切片，Text 只保留前 50 个字符。
type CatalogChunk struct {
	ID    string `json:"id"`
	Chunk string `json:"chunk"`
	Text  string `json:"text"`
}

// CatalogSection 是文档中一个标题下的切片集合。
type CatalogSection struct {
	Subtitle string         `json:"subtitle"`
	Chunks   []CatalogChunk `json:"chunks"`
}

// ChunkCatalog 的结构为 区域 -> 文档 -> 标题 -> 小节。全国性文档归入 "nacional"。
type ChunkCatalog map[string]map[string]map[string]*CatalogSection

// Regions 返回目录中出现的全部区域，按字母序排列。
func (c ChunkCatalog) Regions() []string {
	regions := make([]string, 0, len(c))
	for region := range c {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// DataTables 返回数据库中被读取的表，仅在本地开发与测试中迁移。
func DataTables() []interface{} {
	return []interface{}{&Subchunk{}, &RegionData{}, &NationalDocument{}}
}
