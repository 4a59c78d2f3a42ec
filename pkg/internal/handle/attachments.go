package handle

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/service"
	"github.com/yeisme/casevault/pkg/internal/types"
)

const (
	// multipartOverhead 除文件内容外允许的表单开销.
	multipartOverhead = 1 << 20
	// multipartMemory 解析表单时保留在内存中的上限，超出部分写临时文件.
	multipartMemory = 32 << 20
)

// uploadFields 上传接受的表单字段名.
var uploadFields = []string{"evidence_files[]", "evidence_files"}

// AttachmentHandlers 某一类记录的证据附件处理器.
type AttachmentHandlers struct {
	Kind model.OwnerKind
}

// NewAttachmentHandlers 创建附件处理器.
func NewAttachmentHandlers(kind model.OwnerKind) *AttachmentHandlers {
	return &AttachmentHandlers{Kind: kind}
}

func (h *AttachmentHandlers) svc(c *gin.Context) *service.AttachmentService {
	return service.NewAttachmentService(service.DepsFromContext(c.Request.Context()))
}

// List 列出记录的证据附件.
//
//	@Summary		列出证据附件
//	@Description	返回记录账本中的全部附件，旧数据中的裸字符串条目按结构化形式返回. 支持 If-None-Match.
//	@Tags			证据附件
//	@Produce		json
//	@Param			kind	path		string							true	"记录类型"	Enums(cases, incidents)
//	@Param			id		path		int								true	"记录ID"
//	@Success		200		{object}	types.ListAttachmentsResponse	"附件列表"
//	@Success		304		"未修改"
//	@Failure		404		{object}	types.ErrorResponse				"记录不存在"
//	@Router			/api/v1/{kind}/{id}/attachments [get]
func (h *AttachmentHandlers) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := ownerRef(c, h.Kind)
		if !ok {
			return
		}

		files, err := h.svc(c).List(requestContext(c), ref)
		if err != nil {
			abort(c, err)
			return
		}

		body, err := sonic.Marshal(types.NewListAttachmentsResponse(ref.Kind, ref.ID, files))
		if err != nil {
			abort(c, err)
			return
		}

		etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
		c.Header("ETag", etag)
		c.Header("Cache-Control", "private, no-cache")

		if etagMatches(c.GetHeader("If-None-Match"), etag) {
			c.Status(http.StatusNotModified)
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// Upload 上传证据附件；非 multipart 请求按移除处理.
//
//	@Summary		上传证据附件
//	@Description	multipart 字段 evidence_files[] 携带一个或多个文件，任一文件超限时整体拒绝. 非 multipart 的 POST 等同于移除附件.
//	@Tags			证据附件
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			kind				path		string								true	"记录类型"	Enums(cases, incidents)
//	@Param			id					path		int									true	"记录ID"
//	@Param			evidence_files[]	formData	file								true	"证据文件"
//	@Success		201					{object}	types.UploadAttachmentsResponse		"上传结果"
//	@Failure		404					{object}	types.ErrorResponse					"记录不存在"
//	@Failure		413					{object}	types.ErrorResponse					"文件过大"
//	@Failure		422					{object}	types.ErrorResponse					"参数错误"
//	@Router			/api/v1/{kind}/{id}/attachments [post]
func (h *AttachmentHandlers) Upload() gin.HandlerFunc {
	remove := h.Delete()

	return func(c *gin.Context) {
		if !isMultipart(c.Request) {
			remove(c)
			return
		}

		ref, ok := ownerRef(c, h.Kind)
		if !ok {
			return
		}

		cfg := configs.GetConfig().Attachment
		limit := int64(cfg.MaxFiles)*cfg.MaxFileBytes() + multipartOverhead
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		files, err := multipartFiles(c)
		if err != nil {
			abort(c, err)
			return
		}

		res, err := h.svc(c).Upload(requestContext(c), ref, files)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusCreated, types.UploadAttachmentsResponse{
			Message:    "Evidence files uploaded successfully.",
			Uploaded:   res.Uploaded,
			TotalFiles: res.TotalFiles,
		})
	}
}

// Delete 移除一个证据附件，文件不在账本中时同样成功.
//
//	@Summary		移除证据附件
//	@Description	从账本中移除文件并删除存储对象. 同一文件重复移除返回相同结果.
//	@Tags			证据附件
//	@Accept			json
//	@Produce		json
//	@Param			kind	path		string							true	"记录类型"	Enums(cases, incidents)
//	@Param			id		path		int								true	"记录ID"
//	@Param			body	body		types.RemoveAttachmentRequest	true	"文件名"
//	@Success		200		{object}	types.RemoveAttachmentResponse	"剩余数量"
//	@Failure		404		{object}	types.ErrorResponse				"记录不存在"
//	@Failure		422		{object}	types.ErrorResponse				"参数错误"
//	@Router			/api/v1/{kind}/{id}/attachments [delete]
func (h *AttachmentHandlers) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := ownerRef(c, h.Kind)
		if !ok {
			return
		}

		var req types.RemoveAttachmentRequest
		if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
			abort(c, bindingError(err))
			return
		}

		remaining, err := h.svc(c).Remove(requestContext(c), ref, req.Filename)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, types.RemoveAttachmentResponse{
			Message:        "Evidence file removed successfully.",
			RemainingFiles: remaining,
		})
	}
}

// Download 下载一个证据附件.
//
//	@Summary		下载证据附件
//	@Description	以附件形式返回文件字节，文件名使用上传时的原始名称.
//	@Tags			证据附件
//	@Produce		application/octet-stream
//	@Param			kind		path		string				true	"记录类型"	Enums(cases, incidents)
//	@Param			id			path		int					true	"记录ID"
//	@Param			filename	query		string				true	"存储文件名"
//	@Success		200			{file}		file				"文件流"
//	@Failure		404			{object}	types.ErrorResponse	"记录或文件不存在"
//	@Failure		422			{object}	types.ErrorResponse	"参数错误"
//	@Router			/api/v1/{kind}/{id}/attachments/download [get]
func (h *AttachmentHandlers) Download() gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := ownerRef(c, h.Kind)
		if !ok {
			return
		}

		var q types.DownloadAttachmentQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			abort(c, bindingError(err))
			return
		}

		d, err := h.svc(c).Download(requestContext(c), ref, q.Filename)
		if err != nil {
			abort(c, err)
			return
		}

		defer func() { _ = d.Body.Close() }()

		c.Header("Content-Type", d.ContentType)
		c.Header("Content-Disposition", contentDisposition(d.Name))
		c.Header("X-Content-Type-Options", "nosniff")

		if d.Object.Size >= 0 {
			c.Header("Content-Length", strconv.FormatInt(d.Object.Size, 10))
		}

		if !d.Object.ModTime.IsZero() {
			c.Header("Last-Modified", d.Object.ModTime.UTC().Format(http.TimeFormat))
		}

		c.Status(http.StatusOK)

		if _, err := io.Copy(c.Writer, d.Body); err != nil {
			_ = c.Error(err)
		}
	}
}

// multipartFiles 读取上传字段，两种字段名的文件按出现顺序合并.
func multipartFiles(c *gin.Context) ([]service.RawFile, error) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &service.ValidationError{
				Message:  "The evidence files exceed the maximum request size.",
				Fields:   map[string]string{"evidence_files": "too large"},
				TooLarge: true,
			}
		}

		return nil, &service.ValidationError{
			Message: "The request body is malformed.",
			Fields:  map[string]string{"body": "malformed"},
		}
	}

	var files []service.RawFile

	for _, field := range uploadFields {
		for _, fh := range c.Request.MultipartForm.File[field] {
			files = append(files, rawFile(fh))
		}
	}

	return files, nil
}

func rawFile(fh *multipart.FileHeader) service.RawFile {
	return service.RawFile{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// contentDisposition 生成 attachment 头，非 ASCII 文件名按 RFC 2231 编码.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}

	return "attachment"
}

// etagMatches 判断 If-None-Match 是否包含当前 ETag.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}

	return false
}
